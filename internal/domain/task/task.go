// Package task defines the Task domain entity.
package task

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Strob0t/TaskOrbit/internal/domain"
)

// Status represents the current state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// MaxTitleLen is the maximum task title length in code points. Longer
// titles are truncated, not rejected.
const MaxTitleLen = 255

// ValidStatuses is the set of all valid task statuses.
var ValidStatuses = map[Status]bool{
	StatusPending:   true,
	StatusCompleted: true,
}

// Task represents a to-do item owned by a user.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Completed reports whether the task has been marked done.
func (t *Task) Completed() bool {
	return t.Status == StatusCompleted
}

// CreateRequest holds the fields needed to create a new task.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Validate checks the create request and normalizes the title
// (trimmed, truncated to MaxTitleLen code points).
func (r *CreateRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	r.Title = TruncateTitle(r.Title)
	return nil
}

// UpdateRequest holds the optional fields of a task update. Nil fields
// are left unchanged.
type UpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Empty reports whether the update carries no changes.
func (r *UpdateRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Status == nil
}

// Validate checks the update request fields that are present.
func (r *UpdateRequest) Validate() error {
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		if t == "" {
			return fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
		}
		t = TruncateTitle(t)
		r.Title = &t
	}
	if r.Status != nil && !ValidStatuses[*r.Status] {
		return fmt.Errorf("%w: status must be pending or completed", domain.ErrValidation)
	}
	return nil
}

// TruncateTitle clips a title to MaxTitleLen code points.
func TruncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= MaxTitleLen {
		return title
	}
	return string([]rune(title)[:MaxTitleLen])
}
