package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/TaskOrbit/internal/domain/conversation"
	"github.com/Strob0t/TaskOrbit/internal/port/cache"
	"github.com/Strob0t/TaskOrbit/internal/port/database"
	"github.com/Strob0t/TaskOrbit/internal/port/messagequeue"
)

const defaultListTTL = 5 * time.Minute

// ConversationService manages conversation listing, transcripts and
// deletion. The per-user conversation list is cached; every write that
// touches a user's conversations goes through InvalidateList.
type ConversationService struct {
	store database.Store
	cache cache.Cache
	queue messagequeue.Queue
	ttl   time.Duration
}

// NewConversationService creates a ConversationService. cache and queue
// may be nil (caching and events are then skipped).
func NewConversationService(store database.Store, c cache.Cache, queue messagequeue.Queue, listTTL time.Duration) *ConversationService {
	if listTTL <= 0 {
		listTTL = defaultListTTL
	}
	return &ConversationService{store: store, cache: c, queue: queue, ttl: listTTL}
}

// List returns the user's conversations newest-first, each with its
// message count.
func (s *ConversationService) List(ctx context.Context, userID string) ([]conversation.Summary, error) {
	key := listCacheKey(userID)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var summaries []conversation.Summary
			if err := json.Unmarshal(data, &summaries); err == nil {
				return summaries, nil
			}
			// Corrupt entry: drop it and fall through to the store.
			_ = s.cache.Delete(ctx, key)
		}
	}

	summaries, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(summaries); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				slog.Warn("cache conversation list", "user_id", userID, "error", err)
			}
		}
	}

	return summaries, nil
}

// Get returns a conversation with its full transcript, oldest message
// first.
func (s *ConversationService) Get(ctx context.Context, id, userID string) (*conversation.Transcript, error) {
	conv, err := s.store.GetConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &conversation.Transcript{Conversation: *conv, Messages: msgs}, nil
}

// Delete removes a conversation and its messages in one transaction and
// reports what was removed.
func (s *ConversationService) Delete(ctx context.Context, id, userID string) (*conversation.DeleteResult, error) {
	res, err := s.store.DeleteConversationCascade(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.InvalidateList(ctx, userID)

	publishEvent(ctx, s.queue, messagequeue.SubjectConversationDeleted, messagequeue.ConversationDeletedPayload{
		ConversationID:  res.DeletedConversationID,
		UserID:          userID,
		DeletedMessages: res.DeletedMessageCount,
	})

	slog.Info("conversation deleted",
		"conversation_id", res.DeletedConversationID,
		"deleted_messages", res.DeletedMessageCount,
	)

	return res, nil
}

// InvalidateList drops the user's cached conversation list.
func (s *ConversationService) InvalidateList(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, listCacheKey(userID)); err != nil {
		slog.Warn("invalidate conversation list", "user_id", userID, "error", err)
	}
}

func listCacheKey(userID string) string {
	return "conversations:" + userID
}
