package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache keeps serialized dashboard snapshots for readers outside the process
// that owns the subscriptions.
type Cache interface {
	// StoreState serializes data as JSON under key with a TTL
	StoreState(ctx context.Context, key string, data any, ttl time.Duration) error

	// FetchState returns the raw JSON stored under key, or ErrCacheMiss
	FetchState(ctx context.Context, key string) ([]byte, error)

	// Ping checks cache connection
	Ping(ctx context.Context) error

	// Close gracefully closes any connections
	Close()
}
