package messagequeue

// ChatTurnCompletedPayload is the schema for chat.turn.completed messages.
type ChatTurnCompletedPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Model          string `json:"model"`
	Rounds         int    `json:"rounds"`
	ToolCalls      int    `json:"tool_calls"`
	DurationMS     int64  `json:"duration_ms"`
}

// ConversationDeletedPayload is the schema for chat.conversation.deleted messages.
type ConversationDeletedPayload struct {
	ConversationID  string `json:"conversation_id"`
	UserID          string `json:"user_id"`
	DeletedMessages int    `json:"deleted_messages"`
}

// TaskCreatedPayload is the schema for tasks.created messages.
type TaskCreatedPayload struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Source string `json:"source"` // "api", "chat" or "mcp"
}

// TaskCompletedPayload is the schema for tasks.completed messages.
type TaskCompletedPayload struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// TaskUpdatedPayload is the schema for tasks.updated messages.
type TaskUpdatedPayload struct {
	TaskID  string   `json:"task_id"`
	UserID  string   `json:"user_id"`
	Title   string   `json:"title"`
	Changes []string `json:"changes"`
	Source  string   `json:"source"`
}

// TaskDeletedPayload is the schema for tasks.deleted messages.
type TaskDeletedPayload struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Source string `json:"source"`
}
