package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"testengine/backend/services/testsession"
	"testengine/backend/utils"
)

type AdminController struct {
	Engine *testsession.Service
	Logger *log.Logger
}

func NewAdminController(engine *testsession.Service, logger *log.Logger) *AdminController {
	return &AdminController{Engine: engine, Logger: logger}
}

// TerminateSession force-closes a session without computing a result
func (ac *AdminController) TerminateSession(c *fiber.Ctx) error {
	token := c.Params("token")
	if err := ac.Engine.TerminateSession(c.UserContext(), token); err != nil {
		return utils.FromError(c, ac.Logger, err)
	}
	ac.Logger.Printf("session %s terminated by admin", token)
	return utils.Message(c, "Session terminated")
}

// ExpireSessions closes every expired session, same as the scheduled sweep
func (ac *AdminController) ExpireSessions(c *fiber.Ctx) error {
	closed, err := ac.Engine.ExpireStaleSessions(c.UserContext())
	if err != nil {
		return utils.FromError(c, ac.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"expired": closed})
}
