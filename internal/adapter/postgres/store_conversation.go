package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/TaskOrbit/internal/domain/conversation"
)

func (s *Store) CreateConversation(ctx context.Context, c *conversation.Conversation) (*conversation.Conversation, error) {
	var created conversation.Conversation
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (user_id, title)
		 VALUES ($1, $2)
		 RETURNING id, user_id, title, created_at, updated_at`,
		c.UserID, c.Title,
	).Scan(&created.ID, &created.UserID, &created.Title, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &created, nil
}

func (s *Store) GetConversation(ctx context.Context, id, userID string) (*conversation.Conversation, error) {
	if err := requireUUID(id, "get conversation"); err != nil {
		return nil, err
	}
	var c conversation.Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM conversations WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get conversation %s", id)
	}
	return &c, nil
}

func (s *Store) ListConversations(ctx context.Context, userID string) ([]conversation.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.title, COUNT(m.id), c.created_at, c.updated_at
		 FROM conversations c
		 LEFT JOIN messages m ON m.conversation_id = c.id
		 WHERE c.user_id = $1
		 GROUP BY c.id
		 ORDER BY c.updated_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var result []conversation.Summary
	for rows.Next() {
		var sum conversation.Summary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.MessageCount, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation summary: %w", err)
		}
		result = append(result, sum)
	}
	return orEmpty(result), rows.Err()
}

// DeleteConversationCascade removes the conversation's messages and then the
// conversation row in one transaction, under the conversation write lock so
// no turn can append while the delete is in flight.
func (s *Store) DeleteConversationCascade(ctx context.Context, id, userID string) (*conversation.DeleteResult, error) {
	if err := requireUUID(id, "delete conversation"); err != nil {
		return nil, err
	}
	var result conversation.DeleteResult
	err := s.locks.run(ctx, id, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

		// Ownership check inside the transaction so a foreign conversation
		// reports not found without touching its rows.
		var owned string
		err = tx.QueryRow(ctx,
			`SELECT id FROM conversations WHERE id = $1 AND user_id = $2`, id, userID,
		).Scan(&owned)
		if err != nil {
			return notFoundWrap(err, "delete conversation %s", id)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete messages for %s: %w", id, err)
		}
		result.DeletedMessageCount = int(tag.RowsAffected())

		dtag, derr := tx.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
		if err := execExpectOne(dtag, derr, "delete conversation %s", id); err != nil {
			return err
		}
		result.DeletedConversationID = id

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit delete: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateMessage appends a message and bumps the conversation's updated_at in
// one transaction, serialized per conversation.
func (s *Store) CreateMessage(ctx context.Context, m *conversation.Message) (*conversation.Message, error) {
	var created *conversation.Message
	err := s.locks.run(ctx, m.ConversationID, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

		row := tx.QueryRow(ctx,
			`INSERT INTO messages (conversation_id, role, content)
			 VALUES ($1, $2, $3)
			 RETURNING id, conversation_id, role, content, created_at`,
			m.ConversationID, m.Role, m.Content)
		created, err = scanMessage(row)
		if err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE conversations SET updated_at = NOW() WHERE id = $1`, m.ConversationID); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ListRecentMessages returns the most recent limit messages in chronological
// (oldest first) order.
func (s *Store) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM (
		   SELECT id, conversation_id, role, content, created_at
		   FROM messages WHERE conversation_id = $1
		   ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at ASC`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func scanMessage(row scannable) (*conversation.Message, error) {
	var m conversation.Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMessages(rows pgx.Rows) ([]conversation.Message, error) {
	var result []conversation.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, *m)
	}
	return orEmpty(result), rows.Err()
}
