package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/TaskOrbit/internal/domain"
	"github.com/Strob0t/TaskOrbit/internal/domain/task"
	"github.com/Strob0t/TaskOrbit/internal/port/database"
	"github.com/Strob0t/TaskOrbit/internal/port/messagequeue"
)

// Event sources stamped on task events.
const (
	SourceAPI  = "api"
	SourceChat = "chat"
	SourceMCP  = "mcp"
)

// TaskService is the single write path for tasks. REST handlers, chat
// tools and the MCP server all go through it, so every mutation lands in
// the store once and produces one event.
type TaskService struct {
	store  database.Store
	queue  messagequeue.Queue
	source string
}

// NewTaskService creates a TaskService that stamps events with source "api".
func NewTaskService(store database.Store, queue messagequeue.Queue) *TaskService {
	return &TaskService{store: store, queue: queue, source: SourceAPI}
}

// WithSource returns a copy of the service stamping events with the given
// source. The copy shares the store and queue.
func (s *TaskService) WithSource(source string) *TaskService {
	clone := *s
	clone.source = source
	return &clone
}

// List returns the user's tasks, optionally filtered by status.
func (s *TaskService) List(ctx context.Context, userID string, status task.Status) ([]task.Task, error) {
	if status != "" && !task.ValidStatuses[status] {
		return nil, fmt.Errorf("%w: status must be pending or completed", domain.ErrValidation)
	}
	return s.store.ListTasks(ctx, userID, status)
}

// Get returns a task by ID, scoped to its owner.
func (s *TaskService) Get(ctx context.Context, id, userID string) (*task.Task, error) {
	return s.store.GetTask(ctx, id, userID)
}

// Create validates the request, persists the task and publishes a
// tasks.created event.
func (s *TaskService) Create(ctx context.Context, userID string, req task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.store.CreateTask(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, messagequeue.SubjectTaskCreated, messagequeue.TaskCreatedPayload{
		TaskID: t.ID,
		UserID: t.UserID,
		Title:  t.Title,
		Source: s.source,
	})

	return t, nil
}

// Update applies the non-nil fields of req to the task. Completing a task
// publishes tasks.completed; any other change publishes tasks.updated.
func (s *TaskService) Update(ctx context.Context, id, userID string, req task.UpdateRequest) (*task.Task, error) {
	if req.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.store.UpdateTask(ctx, id, userID, req)
	if err != nil {
		return nil, err
	}

	if req.Status != nil && *req.Status == task.StatusCompleted {
		publishEvent(ctx, s.queue, messagequeue.SubjectTaskCompleted, messagequeue.TaskCompletedPayload{
			TaskID: t.ID,
			UserID: t.UserID,
			Title:  t.Title,
			Source: s.source,
		})
	} else {
		publishEvent(ctx, s.queue, messagequeue.SubjectTaskUpdated, messagequeue.TaskUpdatedPayload{
			TaskID:  t.ID,
			UserID:  t.UserID,
			Title:   t.Title,
			Changes: changedFields(req),
			Source:  s.source,
		})
	}

	return t, nil
}

// Delete removes a task and returns it, so callers can report what was
// deleted. Publishes tasks.deleted.
func (s *TaskService) Delete(ctx context.Context, id, userID string) (*task.Task, error) {
	t, err := s.store.GetTask(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteTask(ctx, id, userID); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, messagequeue.SubjectTaskDeleted, messagequeue.TaskDeletedPayload{
		TaskID: t.ID,
		UserID: t.UserID,
		Title:  t.Title,
		Source: s.source,
	})

	return t, nil
}

// publishEvent marshals and sends an event. The mutation it reports is
// already committed, so a queue failure is logged and swallowed.
func publishEvent(ctx context.Context, queue messagequeue.Queue, subject string, payload any) {
	if queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event", "subject", subject, "error", err)
		return
	}
	if err := queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event", "subject", subject, "error", err)
	}
}

// changedFields lists the fields an update touches, in schema order.
func changedFields(req task.UpdateRequest) []string {
	var changes []string
	if req.Title != nil {
		changes = append(changes, "title")
	}
	if req.Description != nil {
		changes = append(changes, "description")
	}
	if req.Status != nil {
		changes = append(changes, "status")
	}
	return changes
}
