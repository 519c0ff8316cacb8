package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           Environment   `envconfig:"APP_ENV" default:"development"`
	DBPath        string        `envconfig:"DB_PATH" default:"./dev.db"`
	Port          string        `envconfig:"PORT" default:"8080"`
	MigrationsDir string        `envconfig:"MIGRATIONS_DIR" default:"migrations"`
	AutoMigrate   bool          `envconfig:"AUTO_MIGRATE" default:"true"`
	SeedOnStart   bool          `envconfig:"SEED_ON_START" default:"true"`
	RedisURL      string        `envconfig:"REDIS_URL"`
	SnapshotTTL   time.Duration `envconfig:"RATE_SNAPSHOT_TTL" default:"5m"`
	// ShutdownTimeout bounds how long in-flight requests may finish on SIGTERM.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// IsDev reports whether the service runs with development defaults.
func (c Config) IsDev() bool {
	return c.Env.IsDev()
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is not an
// error; production should inject real environment variables. Variables
// already set in the environment win over the file.
func LoadFrom(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment config: %w", err)
	}
	if cfg.SnapshotTTL < 0 {
		return Config{}, fmt.Errorf("RATE_SNAPSHOT_TTL must not be negative, got %s", cfg.SnapshotTTL)
	}
	return cfg, nil
}
