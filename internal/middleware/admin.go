package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/umoja-bank/umoja/internal/config"
)

const adminTokenHeader = "X-Admin-Token"

// AdminAuth guards back-office endpoints with a shared operator token.
// Without a configured token the endpoints do not exist at all, so a default
// deployment never exposes them.
func AdminAuth(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.AdminToken == "" {
			return fiber.NewError(http.StatusNotFound, "not found")
		}
		presented := c.Get(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.AdminToken)) != 1 {
			return fiber.NewError(http.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}
