// Package cache provides short-lived caching for the dashboard
// endpoints, backed by Redis or local memory.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the caching interface used by the stats service.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes all values matching a Redis-style glob
	// like "dashboard:*"
	DeleteByPattern(ctx context.Context, pattern string) error

	Close() error
}

// Dashboard cache keys
const (
	KeyStats         = "dashboard:stats"
	KeyCategoryStats = "dashboard:categories"
	KeyPrefixAll     = "dashboard:*"
)

// TTLs per cache entry type
const (
	TTLStats         = 30 * time.Second
	TTLCategoryStats = 60 * time.Second
)
