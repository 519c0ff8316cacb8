package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"APP_ENV", "DB_PATH", "PORT", "MIGRATIONS_DIR", "AUTO_MIGRATE",
	"SEED_ON_START", "REDIS_URL", "RATE_SNAPSHOT_TTL", "SHUTDOWN_TIMEOUT",
}

// clearEnv unsets every key for the duration of the test; t.Setenv restores
// the original values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.Env != Development || !cfg.IsDev() {
		t.Fatalf("env = %q, want development", cfg.Env)
	}
	if cfg.DBPath != "./dev.db" || cfg.Port != "8080" || cfg.Addr() != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.AutoMigrate || !cfg.SeedOnStart {
		t.Fatalf("expected migrate and seed on by default: %+v", cfg)
	}
	if cfg.SnapshotTTL != 5*time.Minute || cfg.RedisURL != "" {
		t.Fatalf("unexpected cache defaults: %+v", cfg)
	}
}

func TestLoadFromDotEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_ENV=production\nDB_PATH=/data/quotes.db\nPORT=9090\nRATE_SNAPSHOT_TTL=30s\nREDIS_URL=redis://localhost:6379/2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.Env != Production || cfg.IsDev() {
		t.Fatalf("env = %q, want production", cfg.Env)
	}
	if cfg.DBPath != "/data/quotes.db" || cfg.Port != "9090" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.SnapshotTTL != 30*time.Second || cfg.RedisURL != "redis://localhost:6379/2" {
		t.Fatalf("unexpected cache values: %+v", cfg)
	}
}

func TestEnvironmentWinsOverDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PORT=9090\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("port = %q, want 7070", cfg.Port)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_SNAPSHOT_TTL", "soon")

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := map[string]Environment{
		"production":  Production,
		"staging":     Staging,
		"testing":     Testing,
		"development": Development,
		"":            Development,
		"qa":          Development,
	}
	for in, want := range tests {
		if got := ParseEnvironment(in); got != want {
			t.Fatalf("ParseEnvironment(%q) = %q, want %q", in, got, want)
		}
	}
}
