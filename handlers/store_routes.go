// handlers/store_routes.go
package handlers

import (
	"game-session-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupStoreRoutes(app *fiber.App, env *Env, session fiber.Handler) {
	app.Get("/inventory", session, func(c *fiber.Ctx) error {
		entries, err := env.Redemption.Inventory(c.UserContext(), actor(c))
		if err != nil {
			return err
		}
		return c.JSON(entries)
	})

	app.Post("/inventory/redeem", session, func(c *fiber.Ctx) error {
		var in services.RedeemInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		res, err := env.Redemption.Redeem(c.UserContext(), actor(c), in)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	app.Post("/store/purchase", session, func(c *fiber.Ctx) error {
		var in services.PurchaseInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		res, err := env.Redemption.Purchase(c.UserContext(), actor(c), in)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})
}
