package routes

import (
	"errors"
	"log"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"testengine/backend/config"
	"testengine/backend/middleware"
	"testengine/backend/utils"
)

// NewApp creates the Fiber app with the shared middleware
func NewApp(cfg *config.Config, logger *log.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				logger.Printf("unhandled error %s %s: %v", c.Method(), c.Path(), err)
			}
			message := http.StatusText(status)
			if fe != nil {
				message = fe.Message
			}
			return utils.Error(c, status, "", message)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggingMiddleware(logger))
	return app
}
