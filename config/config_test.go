package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadParsesEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/game")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("ADMIN_TOKEN", "admin")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("ARCHIVE_BUCKET", "ledger")
	t.Setenv("ARCHIVE_INTERVAL", "15m")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "5200" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %#v", cfg.AllowedOrigins)
	}
	if cfg.WordMaxAttempts != 64 {
		t.Fatalf("expected default word attempts, got %d", cfg.WordMaxAttempts)
	}
	if cfg.Archive.Bucket != "ledger" || cfg.Archive.Interval != 15*time.Minute {
		t.Fatalf("unexpected archive config: %#v", cfg.Archive)
	}
	if cfg.Archive.Enabled() {
		t.Fatalf("archive should be disabled without credentials")
	}
}

func TestValidateNamesMissingValues(t *testing.T) {
	cfg := &Config{WordMaxAttempts: 1}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, key := range []string{"DATABASE_URL", "SESSION_SECRET", "ADMIN_TOKEN"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
}

func TestArchiveEnabled(t *testing.T) {
	a := ArchiveConfig{Bucket: "b", AccessKeyID: "k", AccessKeySecret: "s", Endpoint: "http://minio:9000"}
	if !a.Enabled() {
		t.Fatalf("expected archive enabled with explicit endpoint")
	}
	a.Endpoint = ""
	if a.Enabled() {
		t.Fatalf("expected archive disabled without endpoint or account")
	}
}
