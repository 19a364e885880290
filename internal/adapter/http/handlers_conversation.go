package http

import (
	"net/http"

	"github.com/Strob0t/TaskOrbit/internal/domain/conversation"
	"github.com/Strob0t/TaskOrbit/internal/middleware"
)

// ListConversations handles GET /api/v1/conversations.
// Returns the caller's conversations, most recently updated first.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	summaries, err := h.Conversations.List(r.Context(), u.ID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if summaries == nil {
		summaries = []conversation.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetConversation handles GET /api/v1/conversations/{id}.
// Returns the conversation with its full message transcript. A conversation
// owned by another user reads as not found.
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := urlParam(r, "id")
	transcript, err := h.Conversations.Get(r.Context(), id, u.ID)
	if err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

// DeleteConversation handles DELETE /api/v1/conversations/{id}.
// Messages and the conversation row go in one transaction; the response
// reports what was removed.
func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := urlParam(r, "id")
	result, err := h.Conversations.Delete(r.Context(), id, u.ID)
	if err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
