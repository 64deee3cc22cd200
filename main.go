package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"game-session-backend/config"
	"game-session-backend/handlers"
	"game-session-backend/hooks"
	"game-session-backend/logger"
	"game-session-backend/models"
	"game-session-backend/plugins"
	"game-session-backend/services"
	"game-session-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		// The logger depends on config, so this is the one place we print directly.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	if !dotenv {
		log.Warn("no .env file found, reading environment variables directly")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := models.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger := services.NewLedger(db)
	hookManager := hooks.NewManager()
	if err := plugins.Register(hookManager, log, plugins.Builtins(ledger, log)...); err != nil {
		log.Fatal("failed to register plugins", "error", err)
	}

	sessions := services.NewSessionStore(db, cfg.SessionSecret, cfg.SessionIssuer)
	archive := newArchive(ctx, cfg, db, log)

	env := &handlers.Env{
		DB:         db,
		Sessions:   sessions,
		Ledger:     ledger,
		Profiles:   services.NewProfiles(db, ledger),
		Duels:      services.NewDuelEngine(db, ledger, hookManager, log),
		Redemption: services.NewRedemptionEngine(db, ledger, hookManager, log),
		Portal:     services.NewPortal(db, sessions, ledger, hookManager, log),
		Catalog:    services.NewCatalogService(db, services.NewWordAllocator(cfg.WordMaxAttempts), log),
		Archive:    archive,
		Log:        log,
		AdminToken: cfg.AdminToken,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log),
		BodyLimit:    1 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.Setup(app, env)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	log.Info("server running", "port", cfg.Port, "origins", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

// newArchive wires the ledger archive to object storage when it is configured
// and schedules periodic snapshots.
func newArchive(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logger.Logger) *services.ArchiveService {
	if !cfg.Archive.Enabled() {
		log.Info("ledger archive disabled")
		return services.NewArchiveService(db, nil, "", log)
	}
	client, err := utils.NewObjectStore(ctx, cfg.Archive)
	if err != nil {
		log.Fatal("failed to initialize object storage", "error", err)
	}
	archive := services.NewArchiveService(db, client, cfg.Archive.Bucket, log)
	if _, err := archive.StartSchedule(ctx, cfg.Archive.Interval); err != nil {
		log.Fatal("failed to schedule ledger archive", "error", err)
	}
	log.Info("ledger archive scheduled", "bucket", cfg.Archive.Bucket, "interval", cfg.Archive.Interval)
	return archive
}
