package mcp

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware gates the MCP endpoint behind a shared key, taken
// from either "Authorization: Bearer <key>" or "X-API-Key: <key>".
// An empty configured key disables the check entirely.
func AuthMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get("X-API-Key")
		if presented == "" {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing credentials", http.StatusUnauthorized)
				return
			}
			presented = strings.TrimPrefix(auth, "Bearer ")
		}

		// Constant-time so the comparison leaks nothing about how much
		// of the key matched.
		if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
			http.Error(w, "invalid credentials", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
