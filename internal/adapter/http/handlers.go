package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/TaskOrbit/internal/adapter/litellm"
	"github.com/Strob0t/TaskOrbit/internal/port/messagequeue"
	"github.com/Strob0t/TaskOrbit/internal/service"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const apiVersion = "0.1.0"

// Pinger reports backing-store connectivity. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Chat          *service.ChatService
	Conversations *service.ConversationService
	Tasks         *service.TaskService
	Auth          *service.AuthService
	LiteLLM       *litellm.Client
	DB            Pinger
	Queue         messagequeue.Queue
}

// APIVersion handles GET /api/v1/.
func (h *Handlers) APIVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": apiVersion})
}

// Health handles GET /health. It reports liveness only; use /health/ready
// for dependency checks.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "taskorbit-core",
	})
}

// Ready handles GET /health/ready. It pings PostgreSQL and checks the NATS
// connection, returning 503 when either is unavailable.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	type readiness struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
		NATS     string `json:"nats"`
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := readiness{Status: "ready", Postgres: "ok", NATS: "ok"}
	status := http.StatusOK

	if h.DB == nil || h.DB.Ping(ctx) != nil {
		resp.Postgres = "unreachable"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	if h.Queue == nil || !h.Queue.IsConnected() {
		resp.NATS = "disconnected"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
