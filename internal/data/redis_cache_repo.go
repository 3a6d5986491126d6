package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCacheRepo backs core.CacheRepository with Redis. The duplicate filter
// is its only consumer, so the surface stays deliberately small.
type RedisCacheRepo struct {
	client redis.UniversalClient
}

func NewRedisCacheRepo(client redis.UniversalClient) *RedisCacheRepo {
	return &RedisCacheRepo{client: client}
}

var errEmptyCacheKey = errors.New("cache key is empty")

// Set writes value under key with the given TTL.
func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyCacheKey
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Get returns the cached bytes for key, or (nil, nil) on a miss.
func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errEmptyCacheKey
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return raw, nil
}

// Delete removes key and reports whether it existed.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyCacheKey
	}
	removed, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del %q: %w", key, err)
	}
	return removed > 0, nil
}
