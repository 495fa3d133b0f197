package utils

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"testengine/backend/services/testsession"
)

// SuccessResponse is the envelope for successful responses
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope for errors
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Success sends a successful JSON response
func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// Message sends a successful response with only a message
func Message(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(SuccessResponse{
		Success: true,
		Message: message,
	})
}

// Error sends a JSON error response
func Error(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
	})
}

// statusFor maps an engine error kind to an HTTP status
func statusFor(kind testsession.Kind) int {
	switch kind {
	case testsession.KindNotFound:
		return fiber.StatusNotFound
	case testsession.KindAccessDenied:
		return fiber.StatusForbidden
	case testsession.KindConflict:
		return fiber.StatusConflict
	case testsession.KindInvalidState:
		return fiber.StatusUnprocessableEntity
	case testsession.KindUnavailable:
		return fiber.StatusLocked
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError answers an engine error. Internal errors are logged and
// the client gets a generic message.
func FromError(c *fiber.Ctx, logger *log.Logger, err error) error {
	var e *testsession.Error
	if errors.As(err, &e) {
		return Error(c, statusFor(e.Kind), e.Code, e.Message)
	}
	requestID, _ := c.Locals("requestID").(string)
	logger.Printf("internal error req=%s %s %s: %v", requestID, c.Method(), c.Path(), err)
	return InternalServerError(c, "Internal server error")
}

// ValidationError sends a JSON response for validation errors
func ValidationError(c *fiber.Ctx, err error) error {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
	} else {
		details["body"] = err.Error()
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
		Success: false,
		Error:   "Validation Error",
		Code:    "validation_failed",
		Details: details,
	})
}

// Created sends 201 Created
func Created(c *fiber.Ctx, data interface{}) error {
	return Success(c, fiber.StatusCreated, data)
}

// NoContent sends 204 No Content
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// BadRequest sends 400 Bad Request
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, "bad_request", message)
}

// Unauthorized sends 401 Unauthorized
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, "unauthorized", message)
}

// Forbidden sends 403 Forbidden
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, "forbidden", message)
}

// InternalServerError sends 500 Internal Server Error
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, "internal", message)
}
