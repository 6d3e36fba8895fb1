package cache

import (
	"context"
	"testing"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	orgID := "org-001"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, orgID, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, orgID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, orgID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, orgID, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, orgID, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, orgID, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, orgID, "expiring", []byte("temp"), 10*time.Millisecond)

		val, _ := cache.Get(ctx, orgID, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, orgID, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, orgID, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, orgID, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, orgID, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, orgID, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, orgID, "d", []byte("4"), time.Minute)

		val, _ := smallCache.Get(ctx, orgID, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		val, _ = smallCache.Get(ctx, orgID, "a")
		if val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("OrgIsolation", func(t *testing.T) {
		org1 := "org-001"
		org2 := "org-002"

		_ = cache.Set(ctx, org1, "shared-key", []byte("org1-value"), time.Minute)
		_ = cache.Set(ctx, org2, "shared-key", []byte("org2-value"), time.Minute)

		val1, _ := cache.Get(ctx, org1, "shared-key")
		val2, _ := cache.Get(ctx, org2, "shared-key")

		if string(val1) != "org1-value" {
			t.Errorf("expected 'org1-value', got '%s'", string(val1))
		}
		if string(val2) != "org2-value" {
			t.Errorf("expected 'org2-value', got '%s'", string(val2))
		}
	})

	t.Run("RequiresOrgID", func(t *testing.T) {
		err := cache.Set(ctx, "", "key", []byte("value"), time.Minute)
		if err == nil {
			t.Error("expected error for empty orgID")
		}

		_, err = cache.Get(ctx, "", "key")
		if err == nil {
			t.Error("expected error for empty orgID")
		}
	})

	t.Run("IncrementCounter", func(t *testing.T) {
		window := 100 * time.Millisecond

		count1, err := cache.IncrementCounter(ctx, orgID, "evaluations", window)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if count1 != 1 {
			t.Errorf("expected count 1, got %d", count1)
		}

		count2, _ := cache.IncrementCounter(ctx, orgID, "evaluations", window)
		if count2 != 2 {
			t.Errorf("expected count 2, got %d", count2)
		}

		// Wait for window to expire
		time.Sleep(150 * time.Millisecond)

		count3, _ := cache.IncrementCounter(ctx, orgID, "evaluations", window)
		if count3 != 1 {
			t.Errorf("expected count 1 after window reset, got %d", count3)
		}
	})

	t.Run("DirectoryCache", func(t *testing.T) {
		employees := []*domain.Employee{
			{ID: "emp-1", OrgID: orgID, FullName: "Maria Santos", Department: "Finance", Active: true},
			{ID: "emp-2", OrgID: orgID, FullName: "James Wong", Department: "Legal", Active: true},
		}

		err := cache.SetDirectory(ctx, orgID, employees, time.Minute)
		if err != nil {
			t.Fatalf("SetDirectory failed: %v", err)
		}

		retrieved, err := cache.GetDirectory(ctx, orgID)
		if err != nil {
			t.Fatalf("GetDirectory failed: %v", err)
		}

		if len(retrieved) != 2 {
			t.Fatalf("expected 2 employees, got %d", len(retrieved))
		}
		if retrieved[0].FullName != "Maria Santos" {
			t.Errorf("expected 'Maria Santos', got '%s'", retrieved[0].FullName)
		}
		if retrieved[1].Department != "Legal" {
			t.Errorf("expected 'Legal', got '%s'", retrieved[1].Department)
		}
	})

	t.Run("DirectoryMiss", func(t *testing.T) {
		retrieved, err := cache.GetDirectory(ctx, "org-without-directory")
		if err != nil {
			t.Fatalf("GetDirectory failed: %v", err)
		}
		if retrieved != nil {
			t.Error("expected nil for directory miss")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, orgID, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, orgID, "k2", []byte("v2"), time.Minute)

		size, capacity := statsCache.Stats()
		if size != 2 {
			t.Errorf("expected size 2, got %d", size)
		}
		if capacity != 50 {
			t.Errorf("expected capacity 50, got %d", capacity)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, orgID, "k", []byte("v"), time.Minute)

		err := testCache.Close()
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}

		val, _ := testCache.Get(ctx, orgID, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type:         "memory",
			LocalMaxSize: 100,
		}

		cache, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		_, ok := cache.(*LRUCache)
		if !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("DefaultsToMemory", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		if _, ok := cache.(*LRUCache); !ok {
			t.Error("expected LRUCache for empty type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type: "memcached",
		}

		_, err := New(cfg)
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
