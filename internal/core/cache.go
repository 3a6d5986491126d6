package core

import (
	"context"
	"time"
)

// CacheRepository is the read-through cache used by the duplicate filter.
// A miss is (nil, nil), not an error; callers fall back to the database.
type CacheRepository interface {
	// Set stores value under key. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the cached value, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key and reports whether it was present.
	Delete(ctx context.Context, key string) (bool, error)
}
