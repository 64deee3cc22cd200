// middleware/auth.go
package middleware

import (
	"context"
	"strings"

	"game-session-backend/logger"
	"game-session-backend/services"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// SessionResolver resolves a bearer token to its owner. A nil identity with
// no error means the token is not (or no longer) valid.
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*services.Identity, error)
}

// BearerToken reads the Authorization header. Both "Bearer <token>" and the
// bare token are accepted; any other scheme yields "".
func BearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if strings.ContainsAny(h, " \t") {
		return ""
	}
	return h
}

// SessionAuth attaches the caller's identity to the request. With required
// set, a missing or unresolvable token ends the request with 401.
func SessionAuth(sessions SessionResolver, log *logger.Logger, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			if required {
				return unauthorized(c, "missing session token")
			}
			return c.Next()
		}

		id, err := sessions.GetSession(c.UserContext(), token)
		if err != nil {
			log.Error("session lookup failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal error"})
		}
		if id == nil {
			if required {
				return unauthorized(c, "invalid or expired session")
			}
			return c.Next()
		}

		c.Locals(identityKey, *id)
		return c.Next()
	}
}

// Identity returns the identity set by SessionAuth, if any.
func Identity(c *fiber.Ctx) (services.Identity, bool) {
	id, ok := c.Locals(identityKey).(services.Identity)
	return id, ok
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": msg})
}
