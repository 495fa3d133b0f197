package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID sets the request id, reusing an incoming one
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("requestID", id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

func LoggingMiddleware(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Pass control to the next handler
		err := c.Next()

		requestID, _ := c.Locals("requestID").(string)
		userID, _ := c.Locals("userID").(uint)

		// Log request details
		logger.Printf(
			"%s %s %s %d %v req=%s user=%d",
			c.IP(),
			c.Method(),
			c.Path(),
			c.Response().StatusCode(),
			time.Since(start),
			requestID,
			userID,
		)

		return err
	}
}
