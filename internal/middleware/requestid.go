package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID tags every request with a correlation id. A caller-supplied id
// is kept only when it is a well-formed UUID; anything else is replaced so
// log correlation keys stay uniform.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}

		c.Locals(requestIDKey, reqID)
		c.Set(requestIDHeader, reqID)

		return c.Next()
	}
}
