// Package cachetest holds a conformance suite that every cache.Cache
// implementation is expected to pass. Adapter packages call Run from
// their own tests.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/TaskOrbit/internal/port/cache"
)

// waiter is implemented by caches that apply writes asynchronously.
// The suite flushes after every mutation so reads observe them.
type waiter interface{ Wait() }

func flush(c cache.Cache) {
	if w, ok := c.(waiter); ok {
		w.Wait()
	}
}

// Run exercises the port contract against c.
func Run(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	set := func(t *testing.T, key, val string) {
		t.Helper()
		if err := c.Set(ctx, key, []byte(val), time.Minute); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
		flush(c)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		set(t, "conform-key", "conform-val")

		val, found, err := c.Get(ctx, "conform-key")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !found {
			t.Fatal("Get missed right after Set")
		}
		if string(val) != "conform-val" {
			t.Fatalf("value = %q, want conform-val", val)
		}
	})

	t.Run("MissIsNotAnError", func(t *testing.T) {
		_, found, err := c.Get(ctx, "conform-never-set")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if found {
			t.Fatal("Get found a key that was never set")
		}
	})

	t.Run("DeleteRemoves", func(t *testing.T) {
		set(t, "conform-del", "x")

		if err := c.Delete(ctx, "conform-del"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		flush(c)

		if _, found, err := c.Get(ctx, "conform-del"); err != nil || found {
			t.Fatalf("after Delete: found=%v err=%v", found, err)
		}
	})

	t.Run("DeleteMissingIsFine", func(t *testing.T) {
		if err := c.Delete(ctx, "conform-never-existed"); err != nil {
			t.Fatalf("Delete of a missing key: %v", err)
		}
	})

	t.Run("OverwriteWins", func(t *testing.T) {
		set(t, "conform-ow", "v1")
		set(t, "conform-ow", "v2")

		val, found, err := c.Get(ctx, "conform-ow")
		if err != nil || !found {
			t.Fatalf("Get: found=%v err=%v", found, err)
		}
		if string(val) != "v2" {
			t.Fatalf("value = %q, want the second write v2", val)
		}
	})
}
