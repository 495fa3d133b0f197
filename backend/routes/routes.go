package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"testengine/backend/config"
	"testengine/backend/controllers"
	"testengine/backend/middleware"
	"testengine/backend/repository"
	"testengine/backend/services/testsession"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, engine *testsession.Service, logger *log.Logger) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes
	authController := controllers.NewAuthController(db, cfg, logger)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware()

	// Profile routes
	userController := controllers.NewUserController(db, engine, logger)
	app.Get("/api/users/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/users/profile", authMiddleware, userController.UpdateProfile)

	// Test catalogue
	testsController := controllers.NewTestsController(db, repository.NewSubscriptionRepository(db), logger)
	app.Get("/api/tests", authMiddleware, testsController.GetAvailableTests)
	app.Get("/api/tests/:testId", authMiddleware, testsController.GetTestDetails)

	// Test session routes
	sessionController := controllers.NewSessionController(engine, logger)
	tests := app.Group("/api/tests/:testId", authMiddleware)
	tests.Post("/start", sessionController.StartSession)
	tests.Get("/questions", sessionController.GetQuestions)
	tests.Post("/answers", sessionController.SubmitAnswer)
	tests.Post("/submit", sessionController.SubmitTest)
	tests.Get("/result/:attemptId", sessionController.GetResult)
	tests.Get("/session/active", sessionController.GetActiveSession)
	tests.Post("/abandon", sessionController.AbandonSession)
	tests.Get("/attempts", sessionController.ListAttempts)

	app.Get("/api/attempts", authMiddleware, sessionController.ListAllAttempts)

	// Admin routes for sessions
	adminController := controllers.NewAdminController(engine, logger)
	admin := app.Group("/api/admin/sessions", authMiddleware, adminMiddleware)
	admin.Post("/expire", adminController.ExpireSessions)
	admin.Post("/:token/terminate", adminController.TerminateSession)
}
