package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const CtxRequestID = "request_id"

// RequestID propagates an inbound X-Request-ID or mints one, so webhook
// redeliveries can be correlated across log lines.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Locals(CtxRequestID, id)
		c.Set(fiber.HeaderXRequestID, id)
		return c.Next()
	}
}
