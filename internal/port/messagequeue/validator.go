package messagequeue

import (
	"encoding/json"
	"fmt"
)

// schemas maps subjects to payload prototypes. Subjects without an
// entry accept any well-formed JSON, so new event types can ship
// before every consumer learns their shape.
var schemas = map[string]func() any{
	SubjectChatTurnCompleted:   func() any { return &ChatTurnCompletedPayload{} },
	SubjectConversationDeleted: func() any { return &ConversationDeletedPayload{} },
	SubjectTaskCreated:         func() any { return &TaskCreatedPayload{} },
	SubjectTaskCompleted:       func() any { return &TaskCompletedPayload{} },
	SubjectTaskUpdated:         func() any { return &TaskUpdatedPayload{} },
	SubjectTaskDeleted:         func() any { return &TaskDeletedPayload{} },
}

// Validate rejects payloads that are not JSON or do not fit the
// subject's registered schema. The queue adapter runs this before
// every dispatch; failures are dead-lettered rather than retried.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	proto, ok := schemas[subject]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, proto()); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}
