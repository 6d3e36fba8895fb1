package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

// New creates a new cache based on configuration.
// "memory" returns an in-process LRU cache. "redis" returns a Redis cache,
// or a TwoPhaseCache (LRU in front of Redis) when two-phase is enabled.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory", "":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache implements the two-phase caching strategy.
// L1: Local LRU cache for fast reads
// L2: Redis for distributed caching and persistence
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	local := NewLRUCache(cfg.LocalMaxSize)

	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL == 0 {
		l1TTL = 5 * time.Minute
	}

	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}, nil
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, orgID string, key string) ([]byte, error) {
	val, err := c.local.Get(ctx, orgID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	val, err = c.remote.Get(ctx, orgID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		// Populate L1 for future reads
		_ = c.local.Set(ctx, orgID, key, val, c.l1TTL)
	}

	return val, nil
}

// Set writes to both L1 and L2.
func (c *TwoPhaseCache) Set(ctx context.Context, orgID string, key string, value []byte, ttl time.Duration) error {
	// L1 keeps a shorter TTL than L2
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, orgID, key, value, l1TTL); err != nil {
		return err
	}

	return c.remote.Set(ctx, orgID, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, orgID string, key string) error {
	if err := c.local.Delete(ctx, orgID, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, orgID, key)
}

// GetDirectory retrieves the cached employee directory for an org.
func (c *TwoPhaseCache) GetDirectory(ctx context.Context, orgID string) ([]*domain.Employee, error) {
	employees, err := c.local.GetDirectory(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if employees != nil {
		return employees, nil
	}

	employees, err = c.remote.GetDirectory(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if employees != nil {
		// Populate L1
		_ = c.local.SetDirectory(ctx, orgID, employees, c.l1TTL)
	}

	return employees, nil
}

// SetDirectory caches the employee directory in both L1 and L2.
func (c *TwoPhaseCache) SetDirectory(ctx context.Context, orgID string, employees []*domain.Employee, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.SetDirectory(ctx, orgID, employees, l1TTL); err != nil {
		return err
	}
	return c.remote.SetDirectory(ctx, orgID, employees, ttl)
}

// IncrementCounter uses Redis for distributed atomic counters.
// L1 is not used for counters to ensure accuracy across nodes.
func (c *TwoPhaseCache) IncrementCounter(ctx context.Context, orgID string, key string, window time.Duration) (int64, error) {
	return c.remote.IncrementCounter(ctx, orgID, key, window)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}
