// handlers/duel_routes.go
package handlers

import (
	"strconv"
	"strings"

	"game-session-backend/apperr"
	"game-session-backend/models"
	"game-session-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupDuelRoutes(app *fiber.App, env *Env, session fiber.Handler) {
	duels := app.Group("/duels", session)

	duels.Post("/", func(c *fiber.Ctx) error {
		var in services.CreateDuelInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		view, err := env.Duels.Create(c.UserContext(), actor(c), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	})

	duels.Get("/", func(c *fiber.Ctx) error {
		filter, err := parseDuelFilter(c)
		if err != nil {
			return err
		}
		views, err := env.Duels.List(c.UserContext(), actor(c), filter)
		if err != nil {
			return err
		}
		return c.JSON(views)
	})

	duels.Get("/:id", func(c *fiber.Ctx) error {
		view, err := env.Duels.Get(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(view)
	})

	duels.Put("/:id", func(c *fiber.Ctx) error {
		var change services.Change
		if err := parseBody(c, &change); err != nil {
			return err
		}
		res, err := env.Duels.Apply(c.UserContext(), actor(c), c.Params("id"), change)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})
}

func parseDuelFilter(c *fiber.Ctx) (services.DuelFilter, error) {
	var f services.DuelFilter
	if raw := c.Query("state"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			state := models.DuelState(strings.TrimSpace(part))
			if !state.Valid() {
				return f, apperr.Validation("unknown duel state %q", part)
			}
			f.States = append(f.States, state)
		}
	}

	var err error
	if f.Active, err = queryBool(c, "active"); err != nil {
		return f, err
	}
	if f.MissingActivity, err = queryBool(c, "missingActivity"); err != nil {
		return f, err
	}
	if f.MissingRecipient, err = queryBool(c, "missingRecipient"); err != nil {
		return f, err
	}
	if f.ActivityID, err = queryUUID(c, "activity"); err != nil {
		return f, err
	}
	if f.RecipientID, err = queryUUID(c, "recipient"); err != nil {
		return f, err
	}
	return f, nil
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation("%s must be true or false", key)
	}
	return &v, nil
}

func queryUUID(c *fiber.Ctx, key string) (string, error) {
	raw := c.Query(key)
	if raw == "" {
		return "", nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperr.Validation("%s must be a uuid", key)
	}
	return raw, nil
}
