package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	tootel "github.com/Strob0t/TaskOrbit/internal/adapter/otel"
	"github.com/Strob0t/TaskOrbit/internal/config"
	"github.com/Strob0t/TaskOrbit/internal/domain"
	"github.com/Strob0t/TaskOrbit/internal/domain/conversation"
	"github.com/Strob0t/TaskOrbit/internal/port/database"
	"github.com/Strob0t/TaskOrbit/internal/port/llm"
	"github.com/Strob0t/TaskOrbit/internal/port/messagequeue"
	"github.com/Strob0t/TaskOrbit/internal/tools"
)

//go:embed templates/chat_system.tmpl
var systemPrompt string

// emptyReplyFallback stands in when the model finishes a turn without
// producing any content.
const emptyReplyFallback = "I apologize, but I couldn't process that request."

// boundReachedReply ends a turn whose model kept requesting tools past the
// configured round limit. The turn still succeeds; completed tool calls
// have been applied.
const boundReachedReply = "I had to stop after reaching the tool-call limit for a single message. " +
	"The actions completed so far have been applied - ask me to continue if there's more to do."

// ChatService drives one chat turn at a time: it persists the user
// message, loops the model against the tool registry, and persists the
// assistant reply once the turn is done.
type ChatService struct {
	store    database.Store
	model    llm.Client
	registry *tools.Registry
	queue    messagequeue.Queue
	convs    *ConversationService
	agentCfg *config.Agent
	metrics  *tootel.Metrics
	modelSem *semaphore.Weighted
}

// NewChatService creates a ChatService. queue may be nil (events are then
// skipped).
func NewChatService(
	store database.Store,
	model llm.Client,
	registry *tools.Registry,
	queue messagequeue.Queue,
	convs *ConversationService,
	agentCfg *config.Agent,
) *ChatService {
	maxCalls := agentCfg.MaxModelCalls
	if maxCalls <= 0 {
		maxCalls = 8
	}
	return &ChatService{
		store:    store,
		model:    model,
		registry: registry,
		queue:    queue,
		convs:    convs,
		agentCfg: agentCfg,
		modelSem: semaphore.NewWeighted(maxCalls),
	}
}

// SetMetrics attaches metric instruments. Optional.
func (s *ChatService) SetMetrics(m *tootel.Metrics) {
	s.metrics = m
}

// turnResult is what one completed agent loop produced.
type turnResult struct {
	reply  string
	traces []conversation.ToolCallTrace
	rounds int
}

// SendMessage runs one chat turn. The user message is persisted before
// the model is invoked, so a failed turn still leaves it in the
// transcript; the assistant message is persisted only when the turn
// completes.
func (s *ChatService) SendMessage(ctx context.Context, userID string, req conversation.ChatRequest) (*conversation.ChatResponse, error) {
	content, err := conversation.ValidateMessage(req.Message)
	if err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, userID, req.ConversationID, content)
	if err != nil {
		return nil, err
	}

	ctx, turnSpan := tootel.StartTurnSpan(ctx, conv.ID, userID)
	defer turnSpan.End()

	// Every path past this point has mutated the user's conversations.
	defer s.convs.InvalidateList(ctx, userID)

	if _, err := s.store.CreateMessage(ctx, &conversation.Message{
		ConversationID: conv.ID,
		Role:           conversation.RoleUser,
		Content:        content,
	}); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	start := time.Now()
	if s.metrics != nil {
		s.metrics.TurnsStarted.Add(ctx, 1)
	}

	turn, err := s.runTurn(ctx, userID, conv.ID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.TurnsFailed.Add(ctx, 1)
		}
		slog.Error("chat turn failed", "conversation_id", conv.ID, "error", err)
		return nil, err
	}

	if _, err := s.store.CreateMessage(ctx, &conversation.Message{
		ConversationID: conv.ID,
		Role:           conversation.RoleAssistant,
		Content:        turn.reply,
	}); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.TurnsCompleted.Add(ctx, 1)
		s.metrics.TurnDuration.Record(ctx, elapsed.Seconds())
	}

	publishEvent(ctx, s.queue, messagequeue.SubjectChatTurnCompleted, messagequeue.ChatTurnCompletedPayload{
		ConversationID: conv.ID,
		UserID:         userID,
		Model:          s.agentCfg.Model,
		Rounds:         turn.rounds,
		ToolCalls:      len(turn.traces),
		DurationMS:     elapsed.Milliseconds(),
	})

	slog.Info("chat turn completed",
		"conversation_id", conv.ID,
		"rounds", turn.rounds,
		"tool_calls", len(turn.traces),
		"duration_ms", elapsed.Milliseconds(),
	)

	return &conversation.ChatResponse{
		ConversationID: conv.ID,
		Response:       turn.reply,
		ToolCalls:      turn.traces,
	}, nil
}

// resolveConversation loads the addressed conversation or creates a new
// one titled from the first message.
func (s *ChatService) resolveConversation(ctx context.Context, userID, conversationID, content string) (*conversation.Conversation, error) {
	if conversationID == "" {
		return s.store.CreateConversation(ctx, &conversation.Conversation{
			UserID: userID,
			Title:  conversation.TitleFrom(content),
		})
	}
	return s.store.GetConversation(ctx, conversationID, userID)
}

// runTurn drives the model/tool loop for one turn. Tool failures are fed
// back to the model as error results; only a model invocation failure
// aborts the turn.
func (s *ChatService) runTurn(ctx context.Context, userID, conversationID string) (*turnResult, error) {
	window := s.agentCfg.HistoryWindow
	if window <= 0 {
		window = 100
	}
	history, err := s.store.ListRecentMessages(ctx, conversationID, window)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}

	msgs := make([]llm.ChatMessage, 0, len(history)+1)
	msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		content := m.Content
		if m.Role == conversation.RoleUser {
			content = sanitizePromptInput(content)
		}
		msgs = append(msgs, llm.ChatMessage{Role: m.Role, Content: content})
	}

	maxRounds := s.agentCfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 10
	}

	res := &turnResult{traces: []conversation.ToolCallTrace{}}
	for res.rounds < maxRounds {
		res.rounds++

		choice, err := s.invokeModel(ctx, msgs, res.rounds)
		if err != nil {
			return nil, err
		}

		if len(choice.Message.ToolCalls) == 0 {
			res.reply = choice.Message.Content
			if res.reply == "" {
				res.reply = emptyReplyFallback
			}
			return res, nil
		}

		// The assistant's tool-call message precedes its tool results.
		msgs = append(msgs, choice.Message)
		for _, tc := range choice.Message.ToolCalls {
			msgs = append(msgs, s.executeToolCall(ctx, userID, tc, res))
		}
	}

	slog.Warn("tool round limit reached",
		"conversation_id", conversationID,
		"rounds", res.rounds,
		"tool_calls", len(res.traces),
	)
	res.reply = boundReachedReply
	return res, nil
}

// invokeModel performs one completion round through the concurrency gate.
func (s *ChatService) invokeModel(ctx context.Context, msgs []llm.ChatMessage, round int) (*llm.Choice, error) {
	if err := s.modelSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelInvocation, err)
	}
	defer s.modelSem.Release(1)

	mctx, span := tootel.StartModelCallSpan(ctx, s.agentCfg.Model, round)
	defer span.End()

	req := llm.ChatCompletionRequest{
		Model:    s.agentCfg.Model,
		Messages: msgs,
		Tools:    s.registry.Definitions(),
	}
	if s.agentCfg.MaxTokens > 0 {
		req.MaxTokens = &s.agentCfg.MaxTokens
	}

	resp, err := s.model.ChatCompletion(mctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelInvocation, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion returned no choices", domain.ErrModelInvocation)
	}

	if s.metrics != nil {
		s.metrics.ModelCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("model", s.agentCfg.Model)))
		if resp.Usage != nil {
			s.metrics.TokensIn.Add(ctx, int64(resp.Usage.PromptTokens))
			s.metrics.TokensOut.Add(ctx, int64(resp.Usage.CompletionTokens))
		}
	}

	return &resp.Choices[0], nil
}

// executeToolCall runs one tool invocation and returns the role:"tool"
// message fed back to the model. Every outcome, including an infra
// failure inside the tool, is a JSON result the model can read.
func (s *ChatService) executeToolCall(ctx context.Context, userID string, tc llm.ToolCall, res *turnResult) llm.ChatMessage {
	_, span := tootel.StartToolCallSpan(ctx, tc.ID, tc.Function.Name)
	result := s.registry.Execute(ctx, userID, tc.Function.Name, tc.Function.Arguments)
	span.End()

	if s.metrics != nil {
		s.metrics.ToolCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tc.Function.Name)))
	}

	res.traces = append(res.traces, conversation.ToolCallTrace{
		Name:      tc.Function.Name,
		Arguments: tools.DecodeArguments(tc.Function.Arguments),
		Result:    result,
	})

	data, err := json.Marshal(result)
	if err != nil {
		data = []byte(`{"error":"tool result could not be serialized"}`)
	}
	return llm.ChatMessage{Role: llm.RoleTool, Content: string(data), ToolCallID: tc.ID}
}
