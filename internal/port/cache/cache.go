// Package cache is the port for byte caches. TaskOrbit layers two
// implementations behind it: ristretto in-process (L1) and NATS KV
// (L2), combined by the tiered adapter. The cachetest package holds
// the conformance suite implementations must pass.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys. A miss is
// reported through the bool, never the error. Implementations may
// evict at will; callers treat every entry as disposable.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
