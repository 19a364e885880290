package logger

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores a request ID in the context. The HTTP middleware
// sets it once per request; the NATS adapter restores it on the consumer
// side so both halves of an event log under the same ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID from the context, or "" when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
