package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replay"

	// Responses above this size are served but not stored.
	maxStoredBody = 1 << 20
)

// storedResponse is the KV representation of a completed response.
type storedResponse struct {
	Status  int                 `json:"status"`
	Headers map[string][]string `json:"headers"`
	Body    []byte              `json:"body"`
}

// Idempotency deduplicates mutating requests that carry an
// Idempotency-Key header. The first request with a given key runs
// normally and its response is stored in the JetStream KV bucket;
// repeats replay the stored response with an Idempotent-Replay marker.
// Server errors (5xx) are never stored, so a retry after a transient
// failure reaches the handler again.
func Idempotency(kv jetstream.KeyValue) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if replayStored(w, r, kv, key) {
				return
			}

			rec := newCaptureWriter(w)
			next.ServeHTTP(rec, r)
			storeResponse(r, kv, key, rec)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// replayStored writes the stored response for key, reporting whether a
// usable entry existed. Corrupt entries are ignored and overwritten by
// the fresh response.
func replayStored(w http.ResponseWriter, r *http.Request, kv jetstream.KeyValue, key string) bool {
	entry, err := kv.Get(r.Context(), key)
	if err != nil {
		return false
	}

	var stored storedResponse
	if err := json.Unmarshal(entry.Value(), &stored); err != nil {
		slog.Warn("idempotency: corrupt entry", "key", key)
		return false
	}

	for name, values := range stored.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
	return true
}

func storeResponse(r *http.Request, kv jetstream.KeyValue, key string, rec *captureWriter) {
	if rec.status >= 500 || rec.body.Len() > maxStoredBody {
		return
	}

	data, err := json.Marshal(storedResponse{
		Status:  rec.status,
		Headers: rec.Header().Clone(),
		Body:    rec.body.Bytes(),
	})
	if err != nil {
		return
	}
	if _, err := kv.Put(r.Context(), key, data); err != nil {
		slog.Warn("idempotency: store failed", "key", key, "error", err)
	}
}

// captureWriter tees the response into a buffer while writing through.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{ResponseWriter: w, status: http.StatusOK, body: &bytes.Buffer{}}
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
