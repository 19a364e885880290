// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/TaskOrbit/internal/domain/conversation"
	"github.com/Strob0t/TaskOrbit/internal/domain/task"
	"github.com/Strob0t/TaskOrbit/internal/domain/user"
)

// Store is the port interface for database operations.
type Store interface {
	// Conversations. Reads and deletes are scoped by owner: a conversation
	// that exists but belongs to another user behaves as not found.
	CreateConversation(ctx context.Context, c *conversation.Conversation) (*conversation.Conversation, error)
	GetConversation(ctx context.Context, id, userID string) (*conversation.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]conversation.Summary, error)
	// DeleteConversationCascade removes the conversation's messages and then
	// the conversation itself in a single transaction, returning what was
	// deleted.
	DeleteConversationCascade(ctx context.Context, id, userID string) (*conversation.DeleteResult, error)

	// Messages
	CreateMessage(ctx context.Context, m *conversation.Message) (*conversation.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error)
	// ListRecentMessages returns the most recent limit messages in
	// chronological (oldest first) order.
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error)

	// Tasks
	CreateTask(ctx context.Context, userID string, req task.CreateRequest) (*task.Task, error)
	GetTask(ctx context.Context, id, userID string) (*task.Task, error)
	ListTasks(ctx context.Context, userID string, status task.Status) ([]task.Task, error)
	UpdateTask(ctx context.Context, id, userID string, req task.UpdateRequest) (*task.Task, error)
	DeleteTask(ctx context.Context, id, userID string) error

	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error

	// Refresh tokens
	CreateRefreshToken(ctx context.Context, rt *user.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*user.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, id string) error
	DeleteRefreshTokensByUser(ctx context.Context, userID string) error
	RotateRefreshToken(ctx context.Context, oldTokenHash string, newRT *user.RefreshToken) error
}
