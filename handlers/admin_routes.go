// handlers/admin_routes.go
package handlers

import (
	"game-session-backend/apperr"
	"game-session-backend/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes mounts the catalog and archive endpoints used by the admin UI.
func SetupAdminRoutes(app *fiber.App, env *Env, admin fiber.Handler) {
	g := app.Group("/admin", admin)

	g.Post("/projects", func(c *fiber.Ctx) error {
		var in struct {
			Name string `json:"name"`
		}
		if err := parseBody(c, &in); err != nil {
			return err
		}
		project, err := env.Catalog.CreateProject(c.UserContext(), in.Name)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(project)
	})

	g.Post("/projects/:id/players", func(c *fiber.Ctx) error {
		var in struct {
			Count int `json:"count"`
		}
		if err := parseBody(c, &in); err != nil {
			return err
		}
		players, err := env.Catalog.CreatePlayers(c.UserContext(), c.Params("id"), in.Count)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(players)
	})

	g.Post("/projects/:id/activities", func(c *fiber.Ctx) error {
		var in services.ActivityInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		activity, err := env.Catalog.CreateActivity(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(activity)
	})

	g.Post("/projects/:id/items", func(c *fiber.Ctx) error {
		var in services.ItemInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		item, err := env.Catalog.CreateItem(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	})

	g.Put("/projects/:id/items/:itemId/tags", func(c *fiber.Ctx) error {
		var in struct {
			Tag   string `json:"tag"`
			Value string `json:"value"`
		}
		if err := parseBody(c, &in); err != nil {
			return err
		}
		tag, err := env.Catalog.SetItemTag(c.UserContext(), c.Params("id"), c.Params("itemId"), in.Tag, in.Value)
		if err != nil {
			return err
		}
		return c.JSON(tag)
	})

	g.Post("/projects/:id/inventory", func(c *fiber.Ctx) error {
		var in struct {
			PlayerID string `json:"playerUuid"`
			ItemID   string `json:"itemUuid"`
			Quantity int64  `json:"quantity"`
		}
		if err := parseBody(c, &in); err != nil {
			return err
		}
		if in.PlayerID == "" || in.ItemID == "" {
			return apperr.Validation("playerUuid and itemUuid are required")
		}
		inv, err := env.Catalog.GrantItem(c.UserContext(), c.Params("id"), in.PlayerID, in.ItemID, in.Quantity)
		if err != nil {
			return err
		}
		return c.JSON(inv)
	})

	g.Post("/projects/:id/archive", func(c *fiber.Ctx) error {
		key, err := env.Archive.ExportProject(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"key": key})
	})
}
