package postgres

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// convLocks serializes writes per conversation. Appends and cascade
// deletes for the same conversation run one at a time so interleaved
// turns cannot corrupt transcript order; writes to different
// conversations proceed concurrently.
type convLocks struct {
	mu    sync.Mutex
	locks map[string]*convLock
}

type convLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newConvLocks() *convLocks {
	return &convLocks{locks: make(map[string]*convLock)}
}

// run acquires the lock for conversationID, runs fn, and releases.
// Blocks while another writer holds the lock. Returns ctx.Err() if the
// context is cancelled while waiting.
func (l *convLocks) run(ctx context.Context, conversationID string, fn func() error) error {
	entry := l.checkout(conversationID)
	if err := entry.sem.Acquire(ctx, 1); err != nil {
		l.checkin(conversationID, entry)
		return err
	}
	defer func() {
		entry.sem.Release(1)
		l.checkin(conversationID, entry)
	}()
	return fn()
}

// checkout returns the lock entry for the conversation, creating it on
// first use, and bumps its refcount.
func (l *convLocks) checkout(conversationID string) *convLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[conversationID]
	if !ok {
		entry = &convLock{sem: semaphore.NewWeighted(1)}
		l.locks[conversationID] = entry
	}
	entry.refs++
	return entry
}

// checkin drops a reference and removes the entry once no writer or
// waiter is using it, so the table does not grow with conversation count.
func (l *convLocks) checkin(conversationID string, entry *convLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, conversationID)
	}
}
