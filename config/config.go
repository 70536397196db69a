// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backends accepted by Config.Backend.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds every setting of the server. Command-line flags in
// cmd/server override these values.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// Storage
	Backend string `env:"BOOKING_BACKEND" envDefault:"json"`
	DataDir string `env:"BOOKING_DATA_DIR" envDefault:"."`
	DBPath  string `env:"BOOKING_DB" envDefault:"places.db"`
	SeedDir string `env:"BOOKING_SEED_DIR"`

	// Points board cache
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	PointsCacheTTL time.Duration `env:"POINTS_CACHE_TTL" envDefault:"30s"`

	// PointsWarmInterval refreshes the cached board in the background.
	// Zero disables the warmer.
	PointsWarmInterval time.Duration `env:"POINTS_WARM_INTERVAL" envDefault:"0s"`

	// Purchase rate limit per client IP
	PurchaseRate  float64 `env:"PURCHASE_RATE" envDefault:"5"`
	PurchaseBurst int     `env:"PURCHASE_BURST" envDefault:"5"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`
}

// Load reads envFile when it exists, then parses the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that env tags cannot express.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendJSON, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendJSON, BackendSQLite, BackendMemory)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PointsCacheTTL < 0 {
		return fmt.Errorf("negative points cache ttl %s", c.PointsCacheTTL)
	}
	if c.PurchaseRate <= 0 || c.PurchaseBurst <= 0 {
		return fmt.Errorf("purchase rate and burst must be positive")
	}
	return nil
}
