package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/carstonks/options-engine/internal/config"
)

// Open builds the backend selected by cfg, wrapping it in a Redis cache
// when a Redis URL is configured.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var primary Store

	switch cfg.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory store, state is lost on restart")
		primary = NewMemoryStore()

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create %s: %w", dir, err)
			}
		}
		s, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		primary = s

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("store: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("store: ping postgres: %w", err)
		}
		pg := NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("store: migrate: %w", err)
		}
		slog.Info("connected to PostgreSQL")
		primary = pg

	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}

	if cfg.RedisURL == "" {
		return primary, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("store: parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache", "error", err)
		rdb.Close()
		return primary, nil
	}
	slog.Info("connected to Redis cache")
	return NewCachedStore(primary, rdb, cfg.CacheTTL), nil
}
