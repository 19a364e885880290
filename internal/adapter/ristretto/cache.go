// Package ristretto is the in-process L1 cache behind the cache port.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache adapts a ristretto cache to the port. Writes are buffered and
// applied asynchronously; a read immediately after a write may miss.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New sizes the cache by total value bytes. Cached values are
// serialized conversation and task lists, roughly 1KB each, so
// NumCounters lands at ~10x the expected item count.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 1024 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value at its byte length as cost. Admission may still
// reject the entry under memory pressure; that is a cache miss later,
// not an error now.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Wait blocks until buffered writes have been applied. Tests and
// shutdown paths use it; request paths never should.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Close stops the internal goroutines and drops all entries.
func (c *Cache) Close() {
	c.c.Close()
}
