// middleware/gateway.go
package middleware

import (
	"crypto/subtle"

	"game-session-backend/logger"

	"github.com/gofiber/fiber/v2"
)

// AdminAuth guards the administration routes with a static bearer token.
func AdminAuth(expected string, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			log.Warn("admin request without token", "path", c.Path())
			return unauthorized(c, "admin token missing")
		}
		if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			log.Warn("admin request with invalid token", "path", c.Path())
			return unauthorized(c, "invalid admin token")
		}
		return c.Next()
	}
}
