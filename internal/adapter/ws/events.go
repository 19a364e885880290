package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/TaskOrbit/internal/port/messagequeue"
)

// bridgeSubjects are the NATS wildcard subscriptions the hub mirrors to
// WebSocket clients.
var bridgeSubjects = []string{"chat.>", "tasks.>"}

// StartEventBridge subscribes the hub to the queue's chat and task
// subjects and forwards each event to the owning user's connections.
// The returned function cancels all bridge subscriptions.
func (h *Hub) StartEventBridge(ctx context.Context, queue messagequeue.Queue) (func(), error) {
	var cancels []func()
	for _, subject := range bridgeSubjects {
		cancel, err := queue.Subscribe(ctx, subject, h.handleQueueEvent)
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return nil, err
		}
		cancels = append(cancels, cancel)
	}

	slog.Info("websocket event bridge started", "subjects", bridgeSubjects)
	return func() {
		for _, c := range cancels {
			c()
		}
	}, nil
}

// handleQueueEvent routes one queue event to WebSocket clients. Every
// event payload carries the owning user_id; events without one are
// dropped rather than leaked to all clients.
func (h *Hub) handleQueueEvent(ctx context.Context, subject string, data []byte) error {
	var owner struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &owner); err != nil {
		slog.Warn("unparseable queue event", "subject", subject, "error", err)
		return nil
	}
	if owner.UserID == "" {
		slog.Warn("queue event without user_id", "subject", subject)
		return nil
	}

	h.BroadcastToUser(ctx, owner.UserID, Message{
		Type:    subject,
		Payload: json.RawMessage(data),
	})
	return nil
}

// BroadcastEvent marshals a typed payload and broadcasts it to all
// connections under the given type.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
