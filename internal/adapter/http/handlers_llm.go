package http

import (
	"log/slog"
	"net/http"

	"github.com/Strob0t/TaskOrbit/internal/adapter/litellm"
)

// ListLLMModels handles GET /api/v1/llm/models
func (h *Handlers) ListLLMModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.LiteLLM.ListModels(r.Context())
	if err != nil {
		slog.Error("litellm unavailable", "error", err)
		writeError(w, http.StatusBadGateway, "LLM service unavailable")
		return
	}
	if models == nil {
		models = []litellm.Model{}
	}
	writeJSON(w, http.StatusOK, models)
}

// DiscoverLLMModels handles GET /api/v1/llm/discover.
// It merges the proxy's configured models with their current health status.
func (h *Handlers) DiscoverLLMModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.LiteLLM.DiscoverModels(r.Context())
	if err != nil {
		slog.Error("litellm discovery failed", "error", err)
		writeError(w, http.StatusBadGateway, "LLM discovery failed")
		return
	}
	if models == nil {
		models = []litellm.DiscoveredModel{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models": models,
		"count":  len(models),
	})
}

// LLMHealth handles GET /api/v1/llm/health
func (h *Handlers) LLMHealth(w http.ResponseWriter, r *http.Request) {
	report, err := h.LiteLLM.HealthDetailed(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "unhealthy"})
		return
	}

	status := "healthy"
	if report.UnhealthyCount > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"healthy":   report.HealthyCount,
		"unhealthy": report.UnhealthyCount,
	})
}
