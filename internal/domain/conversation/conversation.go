// Package conversation defines the conversation and message domain model.
package conversation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Strob0t/TaskOrbit/internal/domain"
)

// Message roles. Only user and assistant messages are persisted as
// transcript rows; tool traffic stays inside a single turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxMessageLen is the maximum accepted chat message length in code points.
const MaxMessageLen = 4000

// TitleLen is the number of leading code points of the first message used
// as the conversation title.
const TitleLen = 50

// Conversation represents a chat thread owned by a user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is a conversation list entry with its message count.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message represents a single persisted message in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // "user" or "assistant"
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Transcript is a conversation with its messages oldest-first.
type Transcript struct {
	Conversation
	Messages []Message `json:"messages"`
}

// DeleteResult reports what a cascade delete removed.
type DeleteResult struct {
	DeletedConversationID string `json:"deleted_conversation_id"`
	DeletedMessageCount   int    `json:"deleted_message_count"`
}

// ValidateMessage checks a chat message body after trimming. Returns a
// wrapped domain.ErrValidation on failure and the trimmed content on success.
func ValidateMessage(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("%w: message must not be empty", domain.ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLen {
		return "", fmt.Errorf("%w: message exceeds %d characters", domain.ErrValidation, MaxMessageLen)
	}
	return trimmed, nil
}

// TitleFrom derives a conversation title from its first message.
func TitleFrom(message string) string {
	runes := []rune(message)
	if len(runes) <= TitleLen {
		return message
	}
	return string(runes[:TitleLen])
}
