package otel

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware returns a chi-compatible middleware that opens a server span
// per request. Health probes are excluded so liveness polling does not show
// up in the trace backend.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	notProbe := func(r *http.Request) bool {
		return !strings.HasPrefix(r.URL.Path, "/health")
	}
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName, otelhttp.WithFilter(notProbe))
	}
}
