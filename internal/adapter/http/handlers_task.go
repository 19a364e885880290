package http

import (
	"net/http"

	"github.com/Strob0t/TaskOrbit/internal/domain/task"
	"github.com/Strob0t/TaskOrbit/internal/middleware"
)

// ListTasks handles GET /api/v1/tasks. An optional ?status= query filters
// by pending or completed.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	status := task.Status(r.URL.Query().Get("status"))
	tasks, err := h.Tasks.List(r.Context(), u.ID, status)
	if err != nil {
		writeDomainError(w, err, "list tasks")
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /api/v1/tasks.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := readJSON[task.CreateRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}

	t, err := h.Tasks.Create(r.Context(), u.ID, req)
	if err != nil {
		writeDomainError(w, err, "task creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetTask handles GET /api/v1/tasks/{id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := urlParam(r, "id")
	t, err := h.Tasks.Get(r.Context(), id, u.ID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTask handles PUT /api/v1/tasks/{id}. Only the fields present in
// the body change.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := urlParam(r, "id")
	req, ok := readJSON[task.UpdateRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}

	t, err := h.Tasks.Update(r.Context(), id, u.ID, req)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := urlParam(r, "id")
	if _, err := h.Tasks.Delete(r.Context(), id, u.ID); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask handles POST /api/v1/tasks/{id}/complete. It is a shorthand
// for updating the status to completed.
func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := urlParam(r, "id")
	completed := task.StatusCompleted
	t, err := h.Tasks.Update(r.Context(), id, u.ID, task.UpdateRequest{Status: &completed})
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
