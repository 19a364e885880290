// Package tools implements the closed set of task tools the model can call.
// The registry binds every invocation to the authenticated user; tool
// arguments never carry identity.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Strob0t/TaskOrbit/internal/domain"
	"github.com/Strob0t/TaskOrbit/internal/domain/task"
	"github.com/Strob0t/TaskOrbit/internal/port/llm"
)

// Tool names. The set is fixed at compile time; there is no dynamic
// registration surface.
const (
	ToolAddTask      = "add_task"
	ToolListTasks    = "list_tasks"
	ToolCompleteTask = "complete_task"
	ToolUpdateTask   = "update_task"
	ToolDeleteTask   = "delete_task"
)

// TaskService is the subset of the task service the tools invoke.
type TaskService interface {
	Create(ctx context.Context, userID string, req task.CreateRequest) (*task.Task, error)
	List(ctx context.Context, userID string, status task.Status) ([]task.Task, error)
	Update(ctx context.Context, id, userID string, req task.UpdateRequest) (*task.Task, error)
	Delete(ctx context.Context, id, userID string) (*task.Task, error)
}

type handlerFunc func(ctx context.Context, userID string, args json.RawMessage) map[string]any

type toolEntry struct {
	def     llm.ToolDefinition
	handler handlerFunc
}

// Registry holds the tool definitions and dispatches executions.
type Registry struct {
	tasks   TaskService
	order   []string
	entries map[string]toolEntry
}

// NewRegistry builds the registry with all five task tools.
func NewRegistry(tasks TaskService) *Registry {
	r := &Registry{
		tasks:   tasks,
		entries: make(map[string]toolEntry),
	}

	r.register(ToolAddTask, "Create a new task on the user's todo list. Returns the new task's ID.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Short title of the task",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Optional longer description",
				},
			},
			"required": []string{"title"},
		}, r.addTask)

	r.register(ToolListTasks, "List the user's tasks, optionally filtered by status.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"enum":        []string{"pending", "completed", "all"},
					"description": "Filter by status; omit or use 'all' for every task",
				},
			},
		}, r.listTasks)

	r.register(ToolCompleteTask, "Mark a task as completed by its ID.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "ID of the task to complete",
				},
			},
			"required": []string{"task_id"},
		}, r.completeTask)

	r.register(ToolUpdateTask, "Change a task's title or description by its ID.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "ID of the task to update",
				},
				"title": map[string]any{
					"type":        "string",
					"description": "New title",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "New description",
				},
			},
			"required": []string{"task_id"},
		}, r.updateTask)

	r.register(ToolDeleteTask, "Delete a task from the user's list by its ID.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "ID of the task to delete",
				},
			},
			"required": []string{"task_id"},
		}, r.deleteTask)

	return r
}

func (r *Registry) register(name, description string, parameters map[string]any, handler handlerFunc) {
	r.order = append(r.order, name)
	r.entries[name] = toolEntry{
		def: llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        name,
				Description: description,
				Parameters:  parameters,
			},
		},
		handler: handler,
	}
}

// Definitions returns the tool declarations in registration order, ready
// to pass to the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Execute runs the named tool for the given user. Every outcome is a JSON
// object: domain failures (missing task, bad arguments, unknown tool) come
// back as error payloads the model can read and recover from, never as Go
// errors.
func (r *Registry) Execute(ctx context.Context, userID, name string, args json.RawMessage) map[string]any {
	entry, ok := r.entries[name]
	if !ok {
		return map[string]any{"error": "Unknown tool: " + name}
	}
	return entry.handler(ctx, userID, args)
}

func (r *Registry) addTask(ctx context.Context, userID string, args json.RawMessage) map[string]any {
	var a struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return map[string]any{"error": "Failed to create task", "details": err.Error()}
	}
	if strings.TrimSpace(a.Title) == "" {
		return map[string]any{"error": "Failed to create task", "details": "Title is required"}
	}

	t, err := r.tasks.Create(ctx, userID, task.CreateRequest{
		Title:       a.Title,
		Description: a.Description,
	})
	if err != nil {
		return map[string]any{"error": "Failed to create task", "details": err.Error()}
	}
	return map[string]any{"task_id": t.ID, "status": "created", "title": t.Title}
}

func (r *Registry) listTasks(ctx context.Context, userID string, args json.RawMessage) map[string]any {
	var a struct {
		Status string `json:"status"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return map[string]any{"error": "Failed to list tasks", "details": err.Error()}
	}

	// Anything other than the two known statuses means no filter.
	status := task.Status("")
	filter := "all"
	switch a.Status {
	case "pending":
		status = task.StatusPending
		filter = "pending"
	case "completed":
		status = task.StatusCompleted
		filter = "completed"
	}

	list, err := r.tasks.List(ctx, userID, status)
	if err != nil {
		return map[string]any{"error": "Failed to list tasks", "details": err.Error()}
	}

	items := make([]map[string]any, 0, len(list))
	for _, t := range list {
		items = append(items, map[string]any{
			"id":          t.ID,
			"title":       t.Title,
			"description": t.Description,
			"completed":   t.Completed(),
			"created_at":  isoOrNil(t.CreatedAt),
		})
	}
	return map[string]any{"tasks": items, "count": len(items), "filter": filter}
}

func (r *Registry) completeTask(ctx context.Context, userID string, args json.RawMessage) map[string]any {
	var a struct {
		TaskID string `json:"task_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return map[string]any{"error": "Failed to complete task", "details": err.Error()}
	}

	completed := task.StatusCompleted
	t, err := r.tasks.Update(ctx, a.TaskID, userID, task.UpdateRequest{Status: &completed})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return map[string]any{"error": "Task not found", "task_id": a.TaskID}
		}
		return map[string]any{"error": "Failed to complete task", "details": err.Error()}
	}
	return map[string]any{"task_id": t.ID, "status": "completed", "title": t.Title}
}

func (r *Registry) updateTask(ctx context.Context, userID string, args json.RawMessage) map[string]any {
	var a struct {
		TaskID      string  `json:"task_id"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return map[string]any{"error": "Failed to update task", "details": err.Error()}
	}
	if a.Title == nil && a.Description == nil {
		return map[string]any{"error": "No updates provided", "details": "Specify title or description to update"}
	}

	// A blank title is skipped rather than applied; a blank description
	// clears the field.
	var req task.UpdateRequest
	var changes []string
	if a.Title != nil {
		if trimmed := strings.TrimSpace(*a.Title); trimmed != "" {
			req.Title = &trimmed
			changes = append(changes, "title")
		}
	}
	if a.Description != nil {
		req.Description = a.Description
		changes = append(changes, "description")
	}
	if len(changes) == 0 {
		return map[string]any{"error": "No valid updates provided"}
	}

	t, err := r.tasks.Update(ctx, a.TaskID, userID, req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return map[string]any{"error": "Task not found", "task_id": a.TaskID}
		}
		return map[string]any{"error": "Failed to update task", "details": err.Error()}
	}
	return map[string]any{"task_id": t.ID, "status": "updated", "title": t.Title, "changes": changes}
}

func (r *Registry) deleteTask(ctx context.Context, userID string, args json.RawMessage) map[string]any {
	var a struct {
		TaskID string `json:"task_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return map[string]any{"error": "Failed to delete task", "details": err.Error()}
	}

	t, err := r.tasks.Delete(ctx, a.TaskID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return map[string]any{"error": "Task not found", "task_id": a.TaskID}
		}
		return map[string]any{"error": "Failed to delete task", "details": err.Error()}
	}
	return map[string]any{"task_id": t.ID, "status": "deleted", "title": t.Title}
}

// decodeArgs unmarshals tool-call arguments. The completion wire carries
// them as a JSON-encoded string; some providers send a bare object. Empty
// arguments decode as no arguments.
func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	data := []byte(raw)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		data = []byte(s)
	}
	if string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

// DecodeArguments exposes the argument decoding for callers that need the
// parsed object, such as tool-call traces.
func DecodeArguments(raw json.RawMessage) map[string]any {
	var m map[string]any
	if err := decodeArgs(raw, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func isoOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
