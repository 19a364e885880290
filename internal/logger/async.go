package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops the async handler at shutdown.
type Closer interface {
	Close()
}

// nopCloser is returned when logging runs synchronously.
type nopCloser struct{}

func (nopCloser) Close() {}

// job pairs a record with the handler that must encode it. Handlers
// derived via WithAttrs or WithGroup share one buffer, so the record
// alone is not enough: the deriving handler's attributes live in its
// inner handler, not in the record.
type job struct {
	h   slog.Handler
	rec slog.Record
}

// AsyncHandler takes encoding off the request path. Handle enqueues
// the record and returns; a small worker pool encodes and writes in
// the background. When the buffer is full the record is dropped
// instead of blocking the caller.
type AsyncHandler struct {
	inner   slog.Handler
	jobs    chan job
	wg      *sync.WaitGroup
	dropped *atomic.Int64
}

// NewAsyncHandler wraps inner with a buffer of bufSize records drained
// by the given number of workers.
func NewAsyncHandler(inner slog.Handler, bufSize, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner:   inner,
		jobs:    make(chan job, bufSize),
		wg:      &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	h.wg.Add(workers)
	for range workers {
		go h.work()
	}
	return h
}

func (h *AsyncHandler) work() {
	defer h.wg.Done()
	for j := range h.jobs {
		_ = j.h.Handle(context.Background(), j.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record for background encoding. A full buffer
// drops the record and bumps the drop counter.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.jobs <- job{h: h.inner, rec: rec}:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler that shares this handler's buffer and
// workers; records enqueued through it carry the extra attributes.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(h.inner.WithAttrs(attrs))
}

// WithGroup returns a handler that shares this handler's buffer and
// workers; records enqueued through it are nested under the group.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return h.derive(h.inner.WithGroup(name))
}

func (h *AsyncHandler) derive(inner slog.Handler) *AsyncHandler {
	return &AsyncHandler{
		inner:   inner,
		jobs:    h.jobs,
		wg:      h.wg,
		dropped: h.dropped,
	}
}

// DroppedCount returns how many records were discarded on a full buffer.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close stops accepting records and blocks until the workers have
// written out everything still buffered.
func (h *AsyncHandler) Close() {
	close(h.jobs)
	h.wg.Wait()
}
