// Package middleware provides HTTP middleware for TaskOrbit.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/TaskOrbit/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// Incoming IDs longer than this are replaced; the header feeds every
// log line and NATS message header.
const maxRequestIDLen = 64

// RequestID adopts the caller's X-Request-ID or mints a fresh UUID,
// stores it in the request context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
