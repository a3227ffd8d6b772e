// Package store defines the key-value persistence interface for the options
// engine. Implementations include SQLite (default local file), PostgreSQL,
// Redis (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("store: key not found")

// Store persists opaque records under string keys. The ledger keeps two
// records, "trades" and "portfolioStats", and always writes them together.
type Store interface {
	// Get returns the record stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// PutAll writes every record in a single transaction where the
	// backend supports one. Either all records are written or none.
	PutAll(ctx context.Context, records map[string][]byte) error

	// Close releases backend resources.
	Close() error
}
