package messagequeue

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		payload string
		wantErr string
	}{
		{
			name:    "chat turn completed",
			subject: SubjectChatTurnCompleted,
			payload: `{"conversation_id":"c1","user_id":"u1","model":"gpt-4o-mini","rounds":2,"tool_calls":1,"duration_ms":840}`,
		},
		{
			name:    "conversation deleted",
			subject: SubjectConversationDeleted,
			payload: `{"conversation_id":"c1","user_id":"u1","deleted_messages":6}`,
		},
		{
			name:    "task created",
			subject: SubjectTaskCreated,
			payload: `{"task_id":"t1","user_id":"u1","title":"Buy milk","source":"chat"}`,
		},
		{
			name:    "task completed",
			subject: SubjectTaskCompleted,
			payload: `{"task_id":"t1","user_id":"u1","title":"Buy milk","source":"api"}`,
		},
		{
			name:    "task updated with changes",
			subject: SubjectTaskUpdated,
			payload: `{"task_id":"t1","user_id":"u1","title":"Buy oat milk","changes":["title"],"source":"mcp"}`,
		},
		{
			name:    "unknown subject passes anything",
			subject: "billing.invoice.paid",
			payload: `{"foo":"bar"}`,
		},
		{
			// All payload fields are optional at this layer, so the
			// empty object unmarshals cleanly.
			name:    "empty object",
			subject: SubjectTaskCreated,
			payload: `{}`,
		},
		{
			name:    "not JSON",
			subject: SubjectTaskCreated,
			payload: `{not valid json`,
			wantErr: "invalid JSON",
		},
		{
			name:    "wrong shape",
			subject: SubjectTaskCreated,
			payload: `"just a string"`,
			wantErr: "schema validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.subject, []byte(tt.payload))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate passed, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
