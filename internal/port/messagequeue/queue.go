// Package messagequeue is the port for the event backbone. Services
// publish domain events here; the NATS adapter implements it.
package messagequeue

import "context"

// Subjects carried on the stream. Everything under chat.> and tasks.>
// is persisted; each subject has a matching payload in schemas.go.
const (
	SubjectChatTurnCompleted   = "chat.turn.completed"       // assistant reply persisted, turn is done
	SubjectConversationDeleted = "chat.conversation.deleted" // conversation and its messages removed

	SubjectTaskCreated   = "tasks.created"
	SubjectTaskCompleted = "tasks.completed"
	SubjectTaskUpdated   = "tasks.updated"
	SubjectTaskDeleted   = "tasks.deleted"
)

// Handler consumes one message. The context carries request-scoped
// values, notably the request ID restored from message headers.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue publishes and subscribes to durable messages.
type Queue interface {
	// Publish sends data to subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe runs handler for every message on subject until the
	// returned cancel function is called.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain stops intake and waits for in-flight messages, then closes.
	Drain() error

	// Close drops the connection without waiting.
	Close() error

	// IsConnected reports whether the underlying connection is up.
	IsConnected() bool
}
