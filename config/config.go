// config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ArchiveConfig points the ledger archive at an S3-compatible bucket (Cloudflare R2 by default).
type ArchiveConfig struct {
	AccountID       string        `env:"ACCOUNT_ID"`
	AccessKeyID     string        `env:"ACCESS_KEY_ID"`
	AccessKeySecret string        `env:"ACCESS_KEY_SECRET"`
	Bucket          string        `env:"BUCKET"`
	Endpoint        string        `env:"ENDPOINT"`
	Interval        time.Duration `env:"INTERVAL" envDefault:"1h"`
}

// Enabled reports whether enough is configured to upload snapshots.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != "" && a.AccessKeyID != "" && a.AccessKeySecret != "" &&
		(a.AccountID != "" || a.Endpoint != "")
}

type Config struct {
	Port            string        `env:"PORT" envDefault:"5200"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	SessionSecret   string        `env:"SESSION_SECRET"`
	SessionIssuer   string        `env:"SESSION_ISSUER" envDefault:"game-session-backend"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogMode         string        `env:"LOG_MODE" envDefault:"dev"`
	WordMaxAttempts int           `env:"WORD_MAX_ATTEMPTS" envDefault:"64"`
	Archive         ArchiveConfig `envPrefix:"ARCHIVE_"`
}

// Load reads an optional .env file and then parses the process environment.
// The returned bool reports whether a .env file was found.
func Load() (*Config, bool, error) {
	dotenv := godotenv.Load() == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, dotenv, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	if err := cfg.Validate(); err != nil {
		return nil, dotenv, err
	}
	return &cfg, dotenv, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if c.AdminToken == "" {
		missing = append(missing, "ADMIN_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment: %s", strings.Join(missing, ", "))
	}
	if c.WordMaxAttempts <= 0 {
		return errors.New("WORD_MAX_ATTEMPTS must be positive")
	}
	return nil
}
