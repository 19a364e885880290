package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/TaskOrbit/internal/domain/user"
)

const refreshTokenCols = "id, user_id, token_hash, expires_at, created_at"

func scanRefreshToken(row scannable) (*user.RefreshToken, error) {
	var rt user.RefreshToken
	if err := row.Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.CreatedAt); err != nil {
		return nil, err
	}
	return &rt, nil
}

func insertRefreshToken(ctx context.Context, q querier, rt *user.RefreshToken) error {
	rt.CreatedAt = time.Now().UTC()
	_, err := q.Exec(ctx, `
		INSERT INTO refresh_tokens (`+refreshTokenCols+`)
		VALUES ($1, $2, $3, $4, $5)`,
		rt.ID, rt.UserID, rt.TokenHash, rt.ExpiresAt, rt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, rt *user.RefreshToken) error {
	return insertRefreshToken(ctx, s.pool, rt)
}

func (s *Store) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*user.RefreshToken, error) {
	rt, err := scanRefreshToken(s.pool.QueryRow(ctx, `
		SELECT `+refreshTokenCols+`
		FROM refresh_tokens WHERE token_hash = $1`, tokenHash))
	if err != nil {
		return nil, notFoundWrap(err, "get refresh token")
	}
	return rt, nil
}

func (s *Store) DeleteRefreshToken(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (s *Store) DeleteRefreshTokensByUser(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete refresh tokens by user: %w", err)
	}
	return nil
}

// RotateRefreshToken swaps the old token for newRT in one transaction.
// The row lock serializes replayed refresh calls on the same token:
// the loser finds the old row gone and gets not found.
func (s *Store) RotateRefreshToken(ctx context.Context, oldTokenHash string, newRT *user.RefreshToken) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	old, err := scanRefreshToken(tx.QueryRow(ctx, `
		SELECT `+refreshTokenCols+`
		FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`, oldTokenHash))
	if err != nil {
		return notFoundWrap(err, "lock old token")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, old.ID); err != nil {
		return fmt.Errorf("delete old refresh token: %w", err)
	}
	if err := insertRefreshToken(ctx, tx, newRT); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotate: %w", err)
	}
	return nil
}
