package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"testengine/backend/middleware"
	"testengine/backend/services/testsession"
	"testengine/backend/utils"
)

type SessionController struct {
	Engine *testsession.Service
	Logger *log.Logger
}

func NewSessionController(engine *testsession.Service, logger *log.Logger) *SessionController {
	return &SessionController{Engine: engine, Logger: logger}
}

type StartSessionInput struct {
	ClientMeta map[string]string `json:"client_meta" validate:"omitempty,max=16"`
}

type SubmitAnswerInput struct {
	SessionToken     string `json:"session_token" validate:"required,uuid"`
	QuestionID       uint   `json:"question_id" validate:"required"`
	SelectedOptionID *uint  `json:"selected_option_id"`
}

type SubmitTestInput struct {
	SessionToken string `json:"session_token" validate:"required,uuid"`
}

// StartSession godoc
// @Summary Start a timed test session
// @Tags sessions
// @Produce json
// @Param testId path int true "Test ID"
// @Success 201 {object} testsession.SessionHandle
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 423 {object} utils.ErrorResponse
// @Router /tests/{testId}/start [post]
func (sc *SessionController) StartSession(c *fiber.Ctx) error {
	testID, ok := paramID(c, "testId")
	if !ok {
		return utils.BadRequest(c, "Invalid test ID")
	}
	var input StartSessionInput
	if err := bindJSON(c, &input); err != nil {
		return utils.ValidationError(c, err)
	}

	handle, err := sc.Engine.StartSession(c.UserContext(), testID, middleware.CurrentUserID(c), testsession.ClientMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Extra:     input.ClientMeta,
	})
	if err != nil {
		return utils.FromError(c, sc.Logger, err)
	}
	return utils.Created(c, handle)
}

// GetQuestions godoc
// @Summary Questions of a live session, without the answer key
// @Tags sessions
// @Produce json
// @Param testId path int true "Test ID"
// @Param session query string true "Session token"
// @Success 200 {array} testsession.QuestionView
// @Router /tests/{testId}/questions [get]
func (sc *SessionController) GetQuestions(c *fiber.Ctx) error {
	testID, ok := paramID(c, "testId")
	if !ok {
		return utils.BadRequest(c, "Invalid test ID")
	}
	token := c.Query("session")
	if token == "" {
		return utils.BadRequest(c, "session query parameter is required")
	}

	views, err := sc.Engine.GetQuestions(c.UserContext(), testID, token, middleware.CurrentUserID(c))
	if err != nil {
		return utils.FromError(c, sc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, views)
}

// SubmitAnswer godoc
// @Summary Record or replace the answer to one question
// @Tags sessions
// @Accept json
// @Param testId path int true "Test ID"
// @Param request body SubmitAnswerInput true "Answer"
// @Success 204
// @Failure 422 {object} utils.ErrorResponse
// @Router /tests/{testId}/answers [post]
func (sc *SessionController) SubmitAnswer(c *fiber.Ctx) error {
	testID, ok := paramID(c, "testId")
	if !ok {
		return utils.BadRequest(c, "Invalid test ID")
	}
	var input SubmitAnswerInput
	if err := bindJSON(c, &input); err != nil {
		return utils.ValidationError(c, err)
	}

	err := sc.Engine.SubmitAnswer(c.UserContext(), testID, middleware.CurrentUserID(c), testsession.AnswerInput{
		SessionToken:     input.SessionToken,
		QuestionID:       input.QuestionID,
		SelectedOptionID: input.SelectedOptionID,
	})
	if err != nil {
		return utils.FromError(c, sc.Logger, err)
	}
	return utils.NoContent(c)
}

// SubmitTest godoc
// @Summary Submit the session and compute the result
// @Tags sessions
// @Accept json
// @Produce json
// @Param testId path int true "Test ID"
// @Param request body SubmitTestInput true "Session"
// @Success 200 {object} testsession.ResultSummary
// @Failure 409 {object} utils.ErrorResponse
// @Router /tests/{testId}/submit [post]
func (sc *SessionController) SubmitTest(c *fiber.Ctx) error {
	testID, ok := paramID(c, "testId")
	if !ok {
		return utils.BadRequest(c, "Invalid test ID")
	}
	var input SubmitTestInput
	if err := bindJSON(c, &input); err != nil {
		return utils.ValidationError(c, err)
	}

	result, err := sc.Engine.SubmitTest(c.UserContext(), testID, middleware.CurrentUserID(c), input.SessionToken)
	if err != nil {
		return utils.FromError(c, sc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

func (sc *SessionController) GetResult(c *fiber.Ctx) error {
	testID, ok := paramID(c, "testId")
	if !ok {
		return utils.BadRequest(c, "Invalid test ID")
	}
	attemptID, ok := paramID(c, "attemptId")
	if !ok {
		return utils.BadRequest(c, "Invalid attempt ID")
	}

	result, err := sc.Engine.GetResult(c.UserContext(), testID, attemptID, middleware.CurrentUserID(c))
	if err != nil {
		return utils.FromError(c, sc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

// GetActiveSession returns the live session so a reloaded client can resume
func (sc *SessionController) GetActiveSession(c *fiber.Ctx) error {
	testID, ok := paramID(c, "testId")
	if !ok {
		return utils.BadRequest(c, "Invalid test ID")
	}

	active, err := sc.Engine.GetActiveSession(c.UserContext(), testID, middleware.CurrentUserID(c))
	if err != nil {
		return utils.FromError(c, sc.Logger, err)
	}
	if active == nil {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"active": false})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"active": true, "session": active})
}

func (sc *SessionController) AbandonSession(c *fiber.Ctx) error {
	testID, ok := paramID(c, "testId")
	if !ok {
		return utils.BadRequest(c, "Invalid test ID")
	}
	if err := sc.Engine.AbandonSession(c.UserContext(), testID, middleware.CurrentUserID(c)); err != nil {
		return utils.FromError(c, sc.Logger, err)
	}
	return utils.Message(c, "Session abandoned")
}

func (sc *SessionController) ListAttempts(c *fiber.Ctx) error {
	testID, ok := paramID(c, "testId")
	if !ok {
		return utils.BadRequest(c, "Invalid test ID")
	}
	attempts, err := sc.Engine.ListAttempts(c.UserContext(), testID, middleware.CurrentUserID(c))
	if err != nil {
		return utils.FromError(c, sc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, attempts)
}

func (sc *SessionController) ListAllAttempts(c *fiber.Ctx) error {
	attempts, err := sc.Engine.ListAllAttempts(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return utils.FromError(c, sc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, attempts)
}
