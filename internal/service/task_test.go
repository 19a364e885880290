package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Strob0t/TaskOrbit/internal/domain"
	"github.com/Strob0t/TaskOrbit/internal/domain/task"
	"github.com/Strob0t/TaskOrbit/internal/port/messagequeue"
)

type publishedEvent struct {
	subject string
	data    []byte
}

// mockQueue records published events and implements messagequeue.Queue.
type mockQueue struct {
	published  []publishedEvent
	publishErr error
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, publishedEvent{subject: subject, data: data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

// --- TaskService Tests ---

func TestTaskServiceList(t *testing.T) {
	store := &mockStore{
		tasks: []task.Task{
			{ID: "t1", UserID: "u1", Title: "Buy milk", Status: task.StatusPending},
			{ID: "t2", UserID: "u1", Title: "Walk dog", Status: task.StatusCompleted},
			{ID: "t3", UserID: "u2", Title: "Someone else's", Status: task.StatusPending},
		},
	}
	svc := NewTaskService(store, &mockQueue{})

	got, err := svc.List(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
}

func TestTaskServiceListStatusFilter(t *testing.T) {
	store := &mockStore{
		tasks: []task.Task{
			{ID: "t1", UserID: "u1", Title: "Buy milk", Status: task.StatusPending},
			{ID: "t2", UserID: "u1", Title: "Walk dog", Status: task.StatusCompleted},
		},
	}
	svc := NewTaskService(store, &mockQueue{})

	got, err := svc.List(context.Background(), "u1", task.StatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "t2" {
		t.Fatalf("expected only the completed task, got %#v", got)
	}
}

func TestTaskServiceListInvalidStatus(t *testing.T) {
	svc := NewTaskService(&mockStore{}, &mockQueue{})

	_, err := svc.List(context.Background(), "u1", task.Status("urgent"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTaskServiceGet(t *testing.T) {
	store := &mockStore{
		tasks: []task.Task{{ID: "t1", UserID: "u1", Title: "Renew passport"}},
	}
	svc := NewTaskService(store, &mockQueue{})

	got, err := svc.Get(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Renew passport" {
		t.Fatalf("expected 'Renew passport', got %q", got.Title)
	}
}

func TestTaskServiceGetNotOwned(t *testing.T) {
	store := &mockStore{
		tasks: []task.Task{{ID: "t1", UserID: "u1", Title: "Renew passport"}},
	}
	svc := NewTaskService(store, &mockQueue{})

	_, err := svc.Get(context.Background(), "t1", "u2")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign task, got %v", err)
	}
}

func TestTaskServiceCreate(t *testing.T) {
	queue := &mockQueue{}
	svc := NewTaskService(&mockStore{}, queue)

	got, err := svc.Create(context.Background(), "u1", task.CreateRequest{Title: "Book dentist"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Book dentist" {
		t.Fatalf("expected 'Book dentist', got %q", got.Title)
	}
	if got.Status != task.StatusPending {
		t.Fatalf("expected status 'pending', got %q", got.Status)
	}

	if len(queue.published) != 1 {
		t.Fatalf("expected 1 publish call, got %d", len(queue.published))
	}
	if queue.published[0].subject != messagequeue.SubjectTaskCreated {
		t.Fatalf("expected subject %q, got %q", messagequeue.SubjectTaskCreated, queue.published[0].subject)
	}

	var payload messagequeue.TaskCreatedPayload
	if err := json.Unmarshal(queue.published[0].data, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.UserID != "u1" || payload.Title != "Book dentist" || payload.Source != SourceAPI {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTaskServiceCreateValidation(t *testing.T) {
	queue := &mockQueue{}
	svc := NewTaskService(&mockStore{}, queue)

	_, err := svc.Create(context.Background(), "u1", task.CreateRequest{Title: "   "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(queue.published) != 0 {
		t.Fatalf("expected no events for a rejected create, got %d", len(queue.published))
	}
}

func TestTaskServiceCreatePublishFailure(t *testing.T) {
	// A failed event publish must not fail the create; the task is already stored.
	queue := &mockQueue{publishErr: errors.New("nats: connection closed")}
	svc := NewTaskService(&mockStore{}, queue)

	got, err := svc.Create(context.Background(), "u1", task.CreateRequest{Title: "Water plants"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Water plants" {
		t.Fatalf("expected 'Water plants', got %q", got.Title)
	}
}

func TestTaskServiceCreateChatSource(t *testing.T) {
	queue := &mockQueue{}
	svc := NewTaskService(&mockStore{}, queue).WithSource(SourceChat)

	if _, err := svc.Create(context.Background(), "u1", task.CreateRequest{Title: "From chat"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload messagequeue.TaskCreatedPayload
	if err := json.Unmarshal(queue.published[0].data, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.Source != SourceChat {
		t.Fatalf("expected source %q, got %q", SourceChat, payload.Source)
	}
}

func TestTaskServiceUpdate(t *testing.T) {
	store := &mockStore{
		tasks: []task.Task{{ID: "t1", UserID: "u1", Title: "Old", Status: task.StatusPending}},
	}
	queue := &mockQueue{}
	svc := NewTaskService(store, queue)

	title := "Renamed"
	got, err := svc.Update(context.Background(), "t1", "u1", task.UpdateRequest{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("expected 'Renamed', got %q", got.Title)
	}

	if queue.published[0].subject != messagequeue.SubjectTaskUpdated {
		t.Fatalf("expected subject %q, got %q", messagequeue.SubjectTaskUpdated, queue.published[0].subject)
	}
	var payload messagequeue.TaskUpdatedPayload
	if err := json.Unmarshal(queue.published[0].data, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if len(payload.Changes) != 1 || payload.Changes[0] != "title" {
		t.Fatalf("expected changes [title], got %v", payload.Changes)
	}
}

func TestTaskServiceUpdateEmpty(t *testing.T) {
	svc := NewTaskService(&mockStore{}, &mockQueue{})

	_, err := svc.Update(context.Background(), "t1", "u1", task.UpdateRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTaskServiceUpdateNotFound(t *testing.T) {
	svc := NewTaskService(&mockStore{}, &mockQueue{})

	title := "x"
	_, err := svc.Update(context.Background(), "nonexistent", "u1", task.UpdateRequest{Title: &title})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskServiceComplete(t *testing.T) {
	store := &mockStore{
		tasks: []task.Task{{ID: "t1", UserID: "u1", Title: "Buy milk", Status: task.StatusPending}},
	}
	queue := &mockQueue{}
	svc := NewTaskService(store, queue)

	status := task.StatusCompleted
	got, err := svc.Update(context.Background(), "t1", "u1", task.UpdateRequest{Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != task.StatusCompleted {
		t.Fatalf("expected completed, got %q", got.Status)
	}

	// Completion gets its own subject, not a generic update.
	if queue.published[0].subject != messagequeue.SubjectTaskCompleted {
		t.Fatalf("expected subject %q, got %q", messagequeue.SubjectTaskCompleted, queue.published[0].subject)
	}
	var payload messagequeue.TaskCompletedPayload
	if err := json.Unmarshal(queue.published[0].data, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.TaskID != "t1" || payload.Title != "Buy milk" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTaskServiceDelete(t *testing.T) {
	store := &mockStore{
		tasks: []task.Task{{ID: "t1", UserID: "u1", Title: "Old chore"}},
	}
	queue := &mockQueue{}
	svc := NewTaskService(store, queue)

	got, err := svc.Delete(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Old chore" {
		t.Fatalf("expected the deleted task returned, got %+v", got)
	}
	if len(store.tasks) != 0 {
		t.Fatalf("expected 0 tasks after delete, got %d", len(store.tasks))
	}
	if queue.published[0].subject != messagequeue.SubjectTaskDeleted {
		t.Fatalf("expected subject %q, got %q", messagequeue.SubjectTaskDeleted, queue.published[0].subject)
	}
}

func TestTaskServiceDeleteNotFound(t *testing.T) {
	svc := NewTaskService(&mockStore{}, &mockQueue{})

	_, err := svc.Delete(context.Background(), "nonexistent", "u1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
