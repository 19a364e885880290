package conversation

// ChatRequest is an inbound chat turn. ConversationID is empty for the
// first message of a new conversation.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ToolCallTrace records one tool invocation made while producing a turn.
// Traces are returned with the response, not persisted as transcript rows.
type ToolCallTrace struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    map[string]any `json:"result"`
}

// ChatResponse is a completed turn.
type ChatResponse struct {
	ConversationID string          `json:"conversation_id"`
	Response       string          `json:"response"`
	ToolCalls      []ToolCallTrace `json:"tool_calls"`
}
