// handlers/env.go
package handlers

import (
	"game-session-backend/logger"
	"game-session-backend/middleware"
	"game-session-backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Env is everything the routes need. It is built once in main and shared by
// reference.
type Env struct {
	DB         *gorm.DB
	Sessions   *services.SessionStore
	Ledger     *services.Ledger
	Profiles   *services.Profiles
	Duels      *services.DuelEngine
	Redemption *services.RedemptionEngine
	Portal     *services.Portal
	Catalog    *services.CatalogService
	Archive    *services.ArchiveService
	Log        *logger.Logger
	AdminToken string
}

// Setup mounts every route group on app.
func Setup(app *fiber.App, env *Env) {
	session := middleware.SessionAuth(env.Sessions, env.Log, true)
	optional := middleware.SessionAuth(env.Sessions, env.Log, false)

	SetupHealthRoutes(app, env)
	SetupPortalRoutes(app, env, optional)
	SetupDuelRoutes(app, env, session)
	SetupStoreRoutes(app, env, session)
	SetupMeRoutes(app, env, session)
	SetupAdminRoutes(app, env, middleware.AdminAuth(env.AdminToken, env.Log))
}

// actor returns the session identity. Routes behind SessionAuth always have one.
func actor(c *fiber.Ctx) services.Identity {
	id, _ := middleware.Identity(c)
	return id
}

func SetupHealthRoutes(app *fiber.App, env *Env) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := env.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			env.Log.Error("health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
