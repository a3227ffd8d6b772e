// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string        // optional read-through cache
	CacheTTL    time.Duration
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port     string
	LogLevel slog.Level

	Store StoreConfig

	// Position limits; 0 disables.
	MaxContractsPerCar   int
	MaxContractsPerBrand int

	// Cash balance of a freshly seeded account.
	StartingCash decimal.Decimal
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
			SQLitePath:  getEnv("SQLITE_PATH", "data/carstonks.db"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			RedisURL:    os.Getenv("REDIS_URL"),
		},
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}

	// DATABASE_URL alone implies postgres.
	if os.Getenv("STORE_DRIVER") == "" && cfg.Store.DatabaseURL != "" {
		cfg.Store.Driver = DriverPostgres
	}

	var err error
	if cfg.Store.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "30s")); err != nil {
		return nil, fmt.Errorf("config: CACHE_TTL: %w", err)
	}
	if cfg.MaxContractsPerCar, err = getInt("MAX_CONTRACTS_PER_CAR", 0); err != nil {
		return nil, err
	}
	if cfg.MaxContractsPerBrand, err = getInt("MAX_CONTRACTS_PER_BRAND", 0); err != nil {
		return nil, err
	}
	if cfg.StartingCash, err = decimal.NewFromString(getEnv("STARTING_CASH", "100000")); err != nil {
		return nil, fmt.Errorf("config: STARTING_CASH: %w", err)
	}
	if cfg.StartingCash.IsNegative() {
		return nil, fmt.Errorf("config: STARTING_CASH must not be negative")
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
