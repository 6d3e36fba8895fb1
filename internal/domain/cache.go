package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU plus Redis for multi-node setups.
// All methods require orgID for strict multi-org isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, orgID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, orgID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, orgID string, key string) error

	// GetDirectory retrieves a cached employee directory page.
	GetDirectory(ctx context.Context, orgID string) ([]*Employee, error)

	// SetDirectory caches an employee directory page so repeated
	// evaluations don't rescan the HRIS read model.
	SetDirectory(ctx context.Context, orgID string, employees []*Employee, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for per-org evaluation counters over a time window.
	IncrementCounter(ctx context.Context, orgID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
