package http

import (
	"net/http"

	"github.com/Strob0t/TaskOrbit/internal/domain/conversation"
	"github.com/Strob0t/TaskOrbit/internal/middleware"
)

// SendChatMessage handles POST /api/v1/chat.
//
// An empty conversation_id starts a new conversation; otherwise the message
// is appended to the caller's existing one. The response carries the full
// assistant reply plus the trace of tool calls made while producing it.
func (h *Handlers) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := readJSON[conversation.ChatRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}

	resp, err := h.Chat.SendMessage(r.Context(), u.ID, req)
	if err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
