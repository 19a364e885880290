// Package tiered stacks the in-process L1 cache over the shared L2
// behind one cache.Cache.
package tiered

import (
	"context"
	"time"

	"github.com/Strob0t/TaskOrbit/internal/port/cache"
)

// Cache reads through L1 to L2 and backfills L1 on an L2 hit.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
}

// New combines l1 and l2. l1Expire bounds how long backfilled entries
// live locally before the next read consults L2 again.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	_ = c.l1.Set(ctx, key, val, c.l1Expire)
	return val, true, nil
}

// Set writes L2 first. L1 fills only once the value is in the shared
// tier, so a failed remote write cannot leave a fresh local entry
// shadowing an older remote one.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.l1.Set(ctx, key, value, ttl)
}

// Delete clears L2 first for the same reason: as long as the remote
// entry exists, evicting only L1 would just backfill it again.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l2.Delete(ctx, key); err != nil {
		return err
	}
	return c.l1.Delete(ctx, key)
}
