package domain

import (
	"context"
	"time"
)

// CacheError is a sentinel error raised by Cache implementations.
type CacheError string

func (e CacheError) Error() string {
	return string(e)
}

// ErrCacheMiss is returned when a key or hash does not exist.
const ErrCacheMiss = CacheError("cache: key not found")

// Cache backs LLM reply caching, the per-quiz run lock and run progress
// hashes.
type Cache interface {
	// Get returns ErrCacheMiss when key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value; a zero expiration keeps it until deleted.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	// SetNX sets key only if it does not exist and reports whether it was set.
	SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error)
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error

	// HGetAll returns ErrCacheMiss when the hash is absent or empty.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSetWithTTL writes fields into the hash at key and refreshes its
	// expiry in one round trip.
	HSetWithTTL(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
}
