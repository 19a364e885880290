package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/TaskOrbit/internal/domain/task"
)

func (s *Store) CreateTask(ctx context.Context, userID string, req task.CreateRequest) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, description, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, title, description, status, created_at, updated_at`,
		userID, req.Title, req.Description, task.StatusPending)

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id, userID string) (*task.Task, error) {
	if err := requireUUID(id, "get task"); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, description, status, created_at, updated_at
		 FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)

	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID string, status task.Status) ([]task.Task, error) {
	query := `SELECT id, user_id, title, description, status, created_at, updated_at
	          FROM tasks WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var result []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		result = append(result, *t)
	}
	return orEmpty(result), rows.Err()
}

// UpdateTask applies the non-nil fields of req. COALESCE leaves a column
// unchanged when its argument is NULL.
func (s *Store) UpdateTask(ctx context.Context, id, userID string, req task.UpdateRequest) (*task.Task, error) {
	if err := requireUUID(id, "update task"); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE tasks SET
		   title = COALESCE($3, title),
		   description = COALESCE($4, description),
		   status = COALESCE($5, status),
		   updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, title, description, status, created_at, updated_at`,
		id, userID, req.Title, req.Description, (*string)(req.Status))

	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "update task %s", id)
	}
	return t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id, userID string) error {
	if err := requireUUID(id, "delete task"); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	return execExpectOne(tag, err, "delete task %s", id)
}

func scanTask(row scannable) (*task.Task, error) {
	var t task.Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
