// handlers/me_routes.go
package handlers

import (
	"game-session-backend/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupMeRoutes(app *fiber.App, env *Env, session fiber.Handler) {
	me := app.Group("/me", session)

	me.Get("/", func(c *fiber.Ctx) error {
		profile, err := env.Profiles.Get(c.UserContext(), actor(c))
		if err != nil {
			return err
		}
		return c.JSON(profile)
	})

	me.Get("/balance", func(c *fiber.Ctx) error {
		id := actor(c)
		balance, err := env.Ledger.Balance(c.UserContext(), nil, id.ProjectID, id.PlayerID)
		if err != nil {
			return err
		}
		return c.JSON(balance)
	})

	me.Get("/transactions", func(c *fiber.Ctx) error {
		id := actor(c)
		history, err := env.Ledger.History(c.UserContext(), id.ProjectID, id.PlayerID, c.QueryInt("limit", 50))
		if err != nil {
			return err
		}
		return c.JSON(history)
	})

	app.Post("/session/logout", session, func(c *fiber.Ctx) error {
		id := actor(c)
		if err := env.Sessions.EndSessionByID(c.UserContext(), id.ProjectID, middleware.BearerToken(c)); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
