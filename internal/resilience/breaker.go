// Package resilience holds failure-handling primitives shared by
// outbound adapters.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// running it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker trips after a run of consecutive failures and rejects calls
// until a cooldown passes. After the cooldown, calls are let through as
// probes: one success closes the breaker, one failure restarts the
// cooldown.
//
// State is derived rather than stored: a zero openedAt means closed,
// a recent openedAt means open, and an expired one means probing.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openedAt  time.Time
	clock     func() time.Time
}

// NewBreaker returns a closed breaker that opens after threshold
// consecutive failures and rejects calls for the cooldown duration.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// Execute runs fn unless the breaker is open, in which case it returns
// ErrCircuitOpen. The outcome of fn feeds back into the breaker.
func (b *Breaker) Execute(fn func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openedAt.IsZero() {
		return true
	}
	// Open. Admit probes once the cooldown has elapsed.
	return b.clock().Sub(b.openedAt) >= b.cooldown
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.openedAt = time.Time{}
		return
	}

	b.failures++
	// A failed probe reopens immediately; a closed breaker waits for
	// the threshold.
	if !b.openedAt.IsZero() || b.failures >= b.threshold {
		b.openedAt = b.clock()
	}
}
