package resilience

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream unavailable")

// trip feeds the breaker n consecutive failures.
func trip(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_ = b.Execute(func() error { return errUpstream })
	}
}

// admitted reports whether the breaker ran the call.
func admitted(b *Breaker) bool {
	ran := false
	_ = b.Execute(func() error {
		ran = true
		return nil
	})
	return ran
}

func TestBreakerPassesThroughResults(t *testing.T) {
	b := NewBreaker(3, time.Second)

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("success call returned %v", err)
	}
	if err := b.Execute(func() error { return errUpstream }); !errors.Is(err, errUpstream) {
		t.Fatalf("failure call returned %v, want upstream error", err)
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(3, time.Second)
	trip(b, 2)

	if !admitted(b) {
		t.Fatal("breaker opened one failure early")
	}
	// The success above reset the count, so it takes three more.
	trip(b, 3)

	ran := false
	err := b.Execute(func() error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker returned %v, want ErrCircuitOpen", err)
	}
	if ran {
		t.Fatal("open breaker still ran the call")
	}
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.clock = func() time.Time { return now }

	trip(b, 2)
	if admitted(b) {
		t.Fatal("breaker admitted a call while open")
	}

	now = now.Add(500 * time.Millisecond)
	if admitted(b) {
		t.Fatal("breaker admitted a call before the cooldown elapsed")
	}

	now = now.Add(time.Second)
	if !admitted(b) {
		t.Fatal("breaker rejected the probe after the cooldown")
	}

	// The successful probe closed it. One failure must not re-trip.
	trip(b, 1)
	if !admitted(b) {
		t.Fatal("breaker did not fully close after a successful probe")
	}
}

func TestBreakerFailedProbeRestartsCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.clock = func() time.Time { return now }

	trip(b, 2)
	now = now.Add(2 * time.Second)

	// Failed probe.
	trip(b, 1)

	now = now.Add(900 * time.Millisecond)
	if admitted(b) {
		t.Fatal("breaker admitted a call during the restarted cooldown")
	}

	now = now.Add(200 * time.Millisecond)
	if !admitted(b) {
		t.Fatal("breaker rejected the probe after the restarted cooldown")
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker(3, time.Second)

	trip(b, 2)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("success call returned %v", err)
	}
	trip(b, 2)

	if !admitted(b) {
		t.Fatal("breaker tripped on failures split by a success")
	}
}
