package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Strob0t/TaskOrbit/internal/domain"
)

// scannable covers pgx.Row and pgx.Rows so row-scan code can be shared.
type scannable interface {
	Scan(dest ...any) error
}

// querier is the subset of pgxpool.Pool and pgx.Tx the store uses, so
// the same statement helper can run with or without an enclosing
// transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// orEmpty turns a nil slice into an empty one so list responses encode
// as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// requireUUID rejects malformed IDs before they reach the database. A
// syntactically invalid ID can never match a row, so it reports the same
// not-found as a missing row instead of a query error.
func requireUUID(id, what string) error {
	if uuid.Validate(id) != nil {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return nil
}

// notFoundWrap maps pgx.ErrNoRows onto domain.ErrNotFound under the
// formatted message; any other error is wrapped as-is.
func notFoundWrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// execExpectOne treats an Exec that touched zero rows as
// domain.ErrNotFound under the formatted message.
func execExpectOne(tag pgconn.CommandTag, err error, format string, args ...any) error {
	if err != nil {
		return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", domain.ErrNotFound)
	}
	return nil
}
