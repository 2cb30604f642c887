// Package cache is a small TTL cache over ristretto.
package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cache stores values for a fixed TTL. A zero TTL disables it: Get always
// misses and Set is a no-op.
type Cache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

// New creates a Cache bounded by maxCost, where every entry costs 1.
func New(maxCost int64, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		return &Cache{}, nil
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxCost,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool { return c.c != nil }

func (c *Cache) Get(key string) (any, bool) {
	if c.c == nil {
		return nil, false
	}
	return c.c.Get(key)
}

// Set stores val and waits until it is visible to Get.
func (c *Cache) Set(key string, val any) {
	if c.c == nil {
		return
	}
	c.c.SetWithTTL(key, val, 1, c.ttl)
	c.c.Wait()
}

func (c *Cache) Close() {
	if c.c == nil {
		return
	}
	c.c.Close()
}
