// handlers/portal_routes.go
package handlers

import (
	"game-session-backend/apperr"
	"game-session-backend/middleware"
	"game-session-backend/services"

	"github.com/gofiber/fiber/v2"
)

// SetupPortalRoutes mounts the code-scan entry points. A session is optional;
// without one the body must name the project.
func SetupPortalRoutes(app *fiber.App, env *Env, optional fiber.Handler) {
	type portalFunc func(c *fiber.Ctx, who *services.Identity, in services.PortalInput) (*services.PortalResult, error)

	route := func(fn portalFunc) fiber.Handler {
		return func(c *fiber.Ctx) error {
			var in services.PortalInput
			if err := parseBody(c, &in); err != nil {
				return err
			}
			if in.WordID == "" {
				return apperr.Validation("wordId is required")
			}
			var who *services.Identity
			if id, ok := middleware.Identity(c); ok {
				who = &id
			}
			res, err := fn(c, who, in)
			if err != nil {
				return err
			}
			return c.JSON(res)
		}
	}

	portal := app.Group("/portal", optional)
	portal.Post("/player", route(func(c *fiber.Ctx, who *services.Identity, in services.PortalInput) (*services.PortalResult, error) {
		return env.Portal.Player(c.UserContext(), who, in)
	}))
	portal.Post("/activity", route(func(c *fiber.Ctx, who *services.Identity, in services.PortalInput) (*services.PortalResult, error) {
		return env.Portal.Activity(c.UserContext(), who, in)
	}))
	portal.Post("/item", route(func(c *fiber.Ctx, who *services.Identity, in services.PortalInput) (*services.PortalResult, error) {
		return env.Portal.Item(c.UserContext(), who, in)
	}))
}
