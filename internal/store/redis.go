package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore wraps a primary Store with a Redis read-through cache.
// Writes go to the primary store and then refresh the cache; reads check
// Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		slog.Warn("cache read failed", "key", key, "error", err)
	}

	// Cache miss: read from primary.
	data, err = s.primary.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	s.rdb.Set(ctx, cacheKey(key), data, s.ttl)
	return data, nil
}

func (s *CachedStore) PutAll(ctx context.Context, records map[string][]byte) error {
	if err := s.primary.PutAll(ctx, records); err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for k, v := range records {
		pipe.Set(ctx, cacheKey(k), v, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// Stale entries must not outlive a successful write.
		keys := make([]string, 0, len(records))
		for k := range records {
			keys = append(keys, cacheKey(k))
		}
		s.rdb.Del(ctx, keys...)
		slog.Warn("cache refresh failed", "error", err)
	}
	return nil
}

// Close closes the primary store and the Redis client.
func (s *CachedStore) Close() error {
	return errors.Join(s.primary.Close(), s.rdb.Close())
}

func cacheKey(key string) string { return fmt.Sprintf("carstonks:%s", key) }
