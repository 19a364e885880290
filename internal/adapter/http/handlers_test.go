package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	tohttp "github.com/Strob0t/TaskOrbit/internal/adapter/http"
	"github.com/Strob0t/TaskOrbit/internal/adapter/litellm"
	"github.com/Strob0t/TaskOrbit/internal/config"
	"github.com/Strob0t/TaskOrbit/internal/domain"
	"github.com/Strob0t/TaskOrbit/internal/domain/conversation"
	"github.com/Strob0t/TaskOrbit/internal/domain/task"
	"github.com/Strob0t/TaskOrbit/internal/domain/user"
	"github.com/Strob0t/TaskOrbit/internal/middleware"
	"github.com/Strob0t/TaskOrbit/internal/port/database"
	"github.com/Strob0t/TaskOrbit/internal/port/llm"
	"github.com/Strob0t/TaskOrbit/internal/port/messagequeue"
	"github.com/Strob0t/TaskOrbit/internal/service"
	"github.com/Strob0t/TaskOrbit/internal/tools"
)

var errNotFound = fmt.Errorf("mock: %w", domain.ErrNotFound)

// mockStore implements database.Store for handler tests. Reads are scoped
// by owner the same way the real store is.
type mockStore struct {
	conversations []conversation.Conversation
	messages      []conversation.Message
	tasks         []task.Task
	users         []user.User
	refreshTokens []user.RefreshToken
}

var _ database.Store = (*mockStore)(nil)

func (m *mockStore) CreateConversation(_ context.Context, c *conversation.Conversation) (*conversation.Conversation, error) {
	c.ID = fmt.Sprintf("conv-%d", len(m.conversations)+1)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.conversations = append(m.conversations, *c)
	return c, nil
}

func (m *mockStore) GetConversation(_ context.Context, id, userID string) (*conversation.Conversation, error) {
	for i := range m.conversations {
		if m.conversations[i].ID == id && m.conversations[i].UserID == userID {
			return &m.conversations[i], nil
		}
	}
	return nil, errNotFound
}

func (m *mockStore) ListConversations(_ context.Context, userID string) ([]conversation.Summary, error) {
	var out []conversation.Summary
	for i := range m.conversations {
		c := &m.conversations[i]
		if c.UserID != userID {
			continue
		}
		count := 0
		for j := range m.messages {
			if m.messages[j].ConversationID == c.ID {
				count++
			}
		}
		out = append(out, conversation.Summary{
			ID:           c.ID,
			Title:        c.Title,
			MessageCount: count,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		})
	}
	return out, nil
}

func (m *mockStore) DeleteConversationCascade(_ context.Context, id, userID string) (*conversation.DeleteResult, error) {
	for i := range m.conversations {
		if m.conversations[i].ID != id || m.conversations[i].UserID != userID {
			continue
		}
		var kept []conversation.Message
		deleted := 0
		for _, msg := range m.messages {
			if msg.ConversationID == id {
				deleted++
			} else {
				kept = append(kept, msg)
			}
		}
		m.messages = kept
		m.conversations = append(m.conversations[:i], m.conversations[i+1:]...)
		return &conversation.DeleteResult{DeletedConversationID: id, DeletedMessageCount: deleted}, nil
	}
	return nil, errNotFound
}

func (m *mockStore) CreateMessage(_ context.Context, msg *conversation.Message) (*conversation.Message, error) {
	msg.ID = fmt.Sprintf("msg-%d", len(m.messages)+1)
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, *msg)
	return msg, nil
}

func (m *mockStore) ListMessages(_ context.Context, conversationID string) ([]conversation.Message, error) {
	var out []conversation.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockStore) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error) {
	all, err := m.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *mockStore) CreateTask(_ context.Context, userID string, req task.CreateRequest) (*task.Task, error) {
	t := task.Task{
		ID:          fmt.Sprintf("task-%d", len(m.tasks)+1),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Status:      task.StatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.tasks = append(m.tasks, t)
	return &t, nil
}

func (m *mockStore) GetTask(_ context.Context, id, userID string) (*task.Task, error) {
	for i := range m.tasks {
		if m.tasks[i].ID == id && m.tasks[i].UserID == userID {
			return &m.tasks[i], nil
		}
	}
	return nil, errNotFound
}

func (m *mockStore) ListTasks(_ context.Context, userID string, status task.Status) ([]task.Task, error) {
	var out []task.Task
	for _, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *mockStore) UpdateTask(_ context.Context, id, userID string, req task.UpdateRequest) (*task.Task, error) {
	for i := range m.tasks {
		if m.tasks[i].ID != id || m.tasks[i].UserID != userID {
			continue
		}
		if req.Title != nil {
			m.tasks[i].Title = *req.Title
		}
		if req.Description != nil {
			m.tasks[i].Description = *req.Description
		}
		if req.Status != nil {
			m.tasks[i].Status = *req.Status
		}
		m.tasks[i].UpdatedAt = time.Now()
		return &m.tasks[i], nil
	}
	return nil, errNotFound
}

func (m *mockStore) DeleteTask(_ context.Context, id, userID string) error {
	for i := range m.tasks {
		if m.tasks[i].ID == id && m.tasks[i].UserID == userID {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	for i := range m.users {
		if m.users[i].Email == u.Email {
			return fmt.Errorf("mock: %w", domain.ErrConflict)
		}
	}
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	u.CreatedAt = time.Now()
	m.users = append(m.users, *u)
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			return &m.users[i], nil
		}
	}
	return nil, errNotFound
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].Email == email {
			return &m.users[i], nil
		}
	}
	return nil, errNotFound
}

func (m *mockStore) ListUsers(_ context.Context) ([]user.User, error) {
	return m.users, nil
}

func (m *mockStore) UpdateUser(_ context.Context, u *user.User) error {
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = *u
			return nil
		}
	}
	return errNotFound
}

func (m *mockStore) CreateRefreshToken(_ context.Context, rt *user.RefreshToken) error {
	m.refreshTokens = append(m.refreshTokens, *rt)
	return nil
}

func (m *mockStore) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*user.RefreshToken, error) {
	for i := range m.refreshTokens {
		if m.refreshTokens[i].TokenHash == tokenHash {
			return &m.refreshTokens[i], nil
		}
	}
	return nil, errNotFound
}

func (m *mockStore) DeleteRefreshToken(_ context.Context, id string) error {
	for i := range m.refreshTokens {
		if m.refreshTokens[i].ID == id {
			m.refreshTokens = append(m.refreshTokens[:i], m.refreshTokens[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (m *mockStore) DeleteRefreshTokensByUser(_ context.Context, userID string) error {
	var kept []user.RefreshToken
	for _, rt := range m.refreshTokens {
		if rt.UserID != userID {
			kept = append(kept, rt)
		}
	}
	m.refreshTokens = kept
	return nil
}

func (m *mockStore) RotateRefreshToken(_ context.Context, oldTokenHash string, newRT *user.RefreshToken) error {
	for i := range m.refreshTokens {
		if m.refreshTokens[i].TokenHash == oldTokenHash {
			m.refreshTokens = append(m.refreshTokens[:i], m.refreshTokens[i+1:]...)
			break
		}
	}
	return m.CreateRefreshToken(context.Background(), newRT)
}

// mockQueue implements messagequeue.Queue.
type mockQueue struct {
	disconnected bool
}

func (q *mockQueue) Publish(_ context.Context, _ string, _ []byte) error { return nil }
func (q *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return !q.disconnected }

// scriptedModel returns canned completions in order.
type scriptedModel struct {
	responses []llm.ChatCompletionResponse
	calls     int
}

func (s *scriptedModel) ChatCompletion(_ context.Context, _ llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	if s.calls >= len(s.responses) {
		return nil, errors.New("scripted model: out of responses")
	}
	resp := s.responses[s.calls]
	s.calls++
	return &resp, nil
}

func textResponse(content string) llm.ChatCompletionResponse {
	return llm.ChatCompletionResponse{
		Choices: []llm.Choice{{
			Message:      llm.ChatMessage{Role: llm.RoleAssistant, Content: content},
			FinishReason: llm.FinishStop,
		}},
	}
}

func toolCallResponse(name string, args string) llm.ChatCompletionResponse {
	return llm.ChatCompletionResponse{
		Choices: []llm.Choice{{
			Message: llm.ChatMessage{
				Role: llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{
					ID:       "call_1",
					Type:     "function",
					Function: llm.ToolFunction{Name: name, Arguments: json.RawMessage(args)},
				}},
			},
			FinishReason: llm.FinishToolCalls,
		}},
	}
}

type pinger struct {
	err error
}

func (p pinger) Ping(_ context.Context) error { return p.err }

func testAuthConfig() *config.Auth {
	return &config.Auth{
		JWTSecret:          "test-secret-key-must-be-long-enough",
		BcryptCost:         4, // low cost for fast tests
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		DefaultAdminEmail:  "admin@taskorbit.local",
		DefaultAdminPass:   "Adminpass123",
	}
}

// newTestRouter builds the full route tree over mocks with auth disabled,
// so every request runs as the default user.
func newTestRouter(responses ...llm.ChatCompletionResponse) chi.Router {
	return newRouter(false, responses...)
}

// newAuthTestRouter is newTestRouter with JWT auth enforced.
func newAuthTestRouter() chi.Router {
	return newRouter(true)
}

func newRouter(authEnabled bool, responses ...llm.ChatCompletionResponse) chi.Router {
	store := &mockStore{}
	queue := &mockQueue{}
	model := &scriptedModel{responses: responses}

	taskSvc := service.NewTaskService(store, queue)
	convSvc := service.NewConversationService(store, nil, queue, 0)
	registry := tools.NewRegistry(taskSvc.WithSource(service.SourceChat))
	agentCfg := &config.Agent{
		Model:         "gpt-4o-mini",
		MaxToolRounds: 5,
		HistoryWindow: 50,
		MaxTokens:     1024,
	}
	chatSvc := service.NewChatService(store, model, registry, queue, convSvc, agentCfg)
	authSvc := service.NewAuthService(store, testAuthConfig())

	h := &tohttp.Handlers{
		Chat:          chatSvc,
		Conversations: convSvc,
		Tasks:         taskSvc,
		Auth:          authSvc,
		LiteLLM:       litellm.NewClient("http://localhost:4000", ""),
		DB:            pinger{},
		Queue:         queue,
	}

	r := chi.NewRouter()
	r.Use(middleware.Auth(authSvc, authEnabled))
	tohttp.MountRoutes(r, h)
	return r
}

func doJSON(r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- Health ---

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter()
	w := doJSON(r, "GET", "/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %q", body["status"])
	}
	if body["service"] != "taskorbit-core" {
		t.Fatalf("expected service taskorbit-core, got %q", body["service"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	r := newTestRouter()
	w := doJSON(r, "GET", "/health/ready", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ready" {
		t.Fatalf("expected status ready, got %q", body["status"])
	}
}

func TestReadyEndpointDegraded(t *testing.T) {
	h := &tohttp.Handlers{
		DB:    pinger{err: errors.New("connection refused")},
		Queue: &mockQueue{disconnected: true},
	}
	r := chi.NewRouter()
	tohttp.MountRoutes(r, h)

	w := doJSON(r, "GET", "/health/ready", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body["postgres"] != "unreachable" {
		t.Fatalf("expected postgres unreachable, got %q", body["postgres"])
	}
	if body["nats"] != "disconnected" {
		t.Fatalf("expected nats disconnected, got %q", body["nats"])
	}
}

func TestVersionEndpoint(t *testing.T) {
	r := newTestRouter()
	w := doJSON(r, "GET", "/api/v1/", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result["version"] != "0.1.0" {
		t.Fatalf("expected version 0.1.0, got %q", result["version"])
	}
}

// --- Chat ---

func TestChatNewConversation(t *testing.T) {
	r := newTestRouter(textResponse("Hi there!"))

	w := doJSON(r, "POST", "/api/v1/chat", conversation.ChatRequest{Message: "Hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	raw := w.Body.String()
	var resp conversation.ChatResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ConversationID == "" {
		t.Fatal("expected a conversation_id")
	}
	if resp.Response != "Hi there!" {
		t.Fatalf("expected model reply, got %q", resp.Response)
	}
	// No tools ran, so tool_calls must be an empty array, not null.
	if !strings.Contains(raw, `"tool_calls":[]`) {
		t.Fatalf("expected empty tool_calls array in %s", raw)
	}
}

func TestChatAppendsToExistingConversation(t *testing.T) {
	r := newTestRouter(textResponse("First reply"), textResponse("Second reply"))

	w := doJSON(r, "POST", "/api/v1/chat", conversation.ChatRequest{Message: "First"})
	var first conversation.ChatResponse
	_ = json.NewDecoder(w.Body).Decode(&first)

	w = doJSON(r, "POST", "/api/v1/chat", conversation.ChatRequest{
		Message:        "Second",
		ConversationID: first.ConversationID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var second conversation.ChatResponse
	_ = json.NewDecoder(w.Body).Decode(&second)
	if second.ConversationID != first.ConversationID {
		t.Fatalf("expected same conversation, got %q and %q", first.ConversationID, second.ConversationID)
	}

	// Both turns are in the transcript.
	w = doJSON(r, "GET", "/api/v1/conversations/"+first.ConversationID, nil)
	var transcript conversation.Transcript
	_ = json.NewDecoder(w.Body).Decode(&transcript)
	if len(transcript.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(transcript.Messages))
	}
}

func TestChatWithToolCall(t *testing.T) {
	r := newTestRouter(
		toolCallResponse("add_task", `{"title":"Buy milk"}`),
		textResponse("Added Buy milk to your list."),
	)

	w := doJSON(r, "POST", "/api/v1/chat", conversation.ChatRequest{Message: "Add buy milk"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp conversation.ChatResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call trace, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Name != "add_task" {
		t.Fatalf("expected add_task trace, got %q", resp.ToolCalls[0].Name)
	}
	if resp.ToolCalls[0].Result["status"] != "created" {
		t.Fatalf("expected created status, got %v", resp.ToolCalls[0].Result)
	}

	// The tool call actually created the task.
	w = doJSON(r, "GET", "/api/v1/tasks", nil)
	var tasks []task.Task
	_ = json.NewDecoder(w.Body).Decode(&tasks)
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Fatalf("expected task Buy milk, got %+v", tasks)
	}
}

func TestChatMessageValidation(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, "POST", "/api/v1/chat", conversation.ChatRequest{Message: ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty message: expected 400, got %d", w.Code)
	}

	w = doJSON(r, "POST", "/api/v1/chat", conversation.ChatRequest{Message: strings.Repeat("x", 4001)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized message: expected 400, got %d", w.Code)
	}
}

func TestChatInvalidBody(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestChatConversationNotFound(t *testing.T) {
	r := newTestRouter(textResponse("unused"))

	w := doJSON(r, "POST", "/api/v1/chat", conversation.ChatRequest{
		Message:        "Hello",
		ConversationID: "conv-missing",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

// --- Conversations ---

func TestListConversationsEmpty(t *testing.T) {
	r := newTestRouter()
	w := doJSON(r, "GET", "/api/v1/conversations", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var summaries []conversation.Summary
	if err := json.NewDecoder(w.Body).Decode(&summaries); err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected empty list, got %d", len(summaries))
	}
}

func TestConversationLifecycle(t *testing.T) {
	r := newTestRouter(textResponse("On it."))

	// Chat creates the conversation.
	w := doJSON(r, "POST", "/api/v1/chat", conversation.ChatRequest{Message: "Remind me to stretch"})
	var resp conversation.ChatResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)

	// List shows it, titled from the first message.
	w = doJSON(r, "GET", "/api/v1/conversations", nil)
	var summaries []conversation.Summary
	_ = json.NewDecoder(w.Body).Decode(&summaries)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(summaries))
	}
	if summaries[0].Title != "Remind me to stretch" {
		t.Fatalf("expected title from first message, got %q", summaries[0].Title)
	}
	if summaries[0].MessageCount != 2 {
		t.Fatalf("expected 2 messages, got %d", summaries[0].MessageCount)
	}

	// Get returns the transcript in order.
	w = doJSON(r, "GET", "/api/v1/conversations/"+resp.ConversationID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var transcript conversation.Transcript
	_ = json.NewDecoder(w.Body).Decode(&transcript)
	if len(transcript.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(transcript.Messages))
	}
	if transcript.Messages[0].Role != "user" || transcript.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected roles: %q, %q", transcript.Messages[0].Role, transcript.Messages[1].Role)
	}

	// Delete reports what was removed.
	w = doJSON(r, "DELETE", "/api/v1/conversations/"+resp.ConversationID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result conversation.DeleteResult
	_ = json.NewDecoder(w.Body).Decode(&result)
	if result.DeletedMessageCount != 2 {
		t.Fatalf("expected 2 deleted messages, got %d", result.DeletedMessageCount)
	}

	// Gone afterwards.
	w = doJSON(r, "GET", "/api/v1/conversations/"+resp.ConversationID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	r := newTestRouter()
	w := doJSON(r, "GET", "/api/v1/conversations/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDeleteConversationNotFound(t *testing.T) {
	r := newTestRouter()
	w := doJSON(r, "DELETE", "/api/v1/conversations/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

// --- Tasks ---

func TestCreateAndListTasks(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, "POST", "/api/v1/tasks", task.CreateRequest{Title: "Write report", Description: "Q3 numbers"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created task.Task
	_ = json.NewDecoder(w.Body).Decode(&created)
	if created.Title != "Write report" {
		t.Fatalf("expected title 'Write report', got %q", created.Title)
	}
	if created.Status != task.StatusPending {
		t.Fatalf("expected pending status, got %q", created.Status)
	}

	w = doJSON(r, "GET", "/api/v1/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var tasks []task.Task
	_ = json.NewDecoder(w.Body).Decode(&tasks)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}

	// Status filter.
	w = doJSON(r, "GET", "/api/v1/tasks?status=completed", nil)
	tasks = nil
	_ = json.NewDecoder(w.Body).Decode(&tasks)
	if len(tasks) != 0 {
		t.Fatalf("expected 0 completed tasks, got %d", len(tasks))
	}
}

func TestCreateTaskMissingTitle(t *testing.T) {
	r := newTestRouter()
	w := doJSON(r, "POST", "/api/v1/tasks", task.CreateRequest{Description: "no title"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateTaskInvalidBody(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest("POST", "/api/v1/tasks", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListTasksInvalidStatus(t *testing.T) {
	r := newTestRouter()
	w := doJSON(r, "GET", "/api/v1/tasks?status=urgent", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	r := newTestRouter()
	w := doJSON(r, "GET", "/api/v1/tasks/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateTask(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, "POST", "/api/v1/tasks", task.CreateRequest{Title: "Old title"})
	var created task.Task
	_ = json.NewDecoder(w.Body).Decode(&created)

	newTitle := "New title"
	w = doJSON(r, "PUT", "/api/v1/tasks/"+created.ID, task.UpdateRequest{Title: &newTitle})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated task.Task
	_ = json.NewDecoder(w.Body).Decode(&updated)
	if updated.Title != "New title" {
		t.Fatalf("expected updated title, got %q", updated.Title)
	}
}

func TestUpdateTaskNoFields(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, "POST", "/api/v1/tasks", task.CreateRequest{Title: "Task"})
	var created task.Task
	_ = json.NewDecoder(w.Body).Decode(&created)

	w = doJSON(r, "PUT", "/api/v1/tasks/"+created.ID, map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty update, got %d", w.Code)
	}
}

func TestCompleteTask(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, "POST", "/api/v1/tasks", task.CreateRequest{Title: "Finish me"})
	var created task.Task
	_ = json.NewDecoder(w.Body).Decode(&created)

	w = doJSON(r, "POST", "/api/v1/tasks/"+created.ID+"/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var completed task.Task
	_ = json.NewDecoder(w.Body).Decode(&completed)
	if completed.Status != task.StatusCompleted {
		t.Fatalf("expected completed status, got %q", completed.Status)
	}
}

func TestDeleteTask(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, "POST", "/api/v1/tasks", task.CreateRequest{Title: "Remove me"})
	var created task.Task
	_ = json.NewDecoder(w.Body).Decode(&created)

	w = doJSON(r, "DELETE", "/api/v1/tasks/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = doJSON(r, "GET", "/api/v1/tasks/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

// --- Auth ---

func registerAndLogin(t *testing.T, r chi.Router, email string) (accessToken string, refreshCookie *http.Cookie) {
	t.Helper()

	w := doJSON(r, "POST", "/api/v1/auth/register", user.CreateRequest{
		Email:    email,
		Name:     "Test User",
		Password: "Password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(r, "POST", "/api/v1/auth/login", user.LoginRequest{
		Email:    email,
		Password: "Password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp user.LoginResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.AccessToken == "" {
		t.Fatal("expected an access token")
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == "taskorbit_refresh" {
			refreshCookie = c
		}
	}
	if refreshCookie == nil {
		t.Fatal("expected a refresh cookie")
	}
	if !refreshCookie.HttpOnly {
		t.Fatal("refresh cookie must be httpOnly")
	}
	return resp.AccessToken, refreshCookie
}

func authedRequest(r chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		data, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthFlow(t *testing.T) {
	r := newAuthTestRouter()
	token, cookie := registerAndLogin(t, r, "alice@taskorbit.io")

	// Authenticated identity.
	w := authedRequest(r, "GET", "/api/v1/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var me user.User
	_ = json.NewDecoder(w.Body).Decode(&me)
	if me.Email != "alice@taskorbit.io" {
		t.Fatalf("expected alice, got %q", me.Email)
	}

	// Logout revokes the refresh token family.
	w = authedRequest(r, "POST", "/api/v1/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}

	req := httptest.NewRequest("POST", "/api/v1/auth/refresh", http.NoBody)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", rec.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	r := newAuthTestRouter()
	_, cookie := registerAndLogin(t, r, "bob@taskorbit.io")

	req := httptest.NewRequest("POST", "/api/v1/auth/refresh", http.NoBody)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rotated *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "taskorbit_refresh" {
			rotated = c
		}
	}
	if rotated == nil || rotated.Value == cookie.Value {
		t.Fatal("expected a rotated refresh cookie")
	}

	// The old token is single-use.
	req = httptest.NewRequest("POST", "/api/v1/auth/refresh", http.NoBody)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: expected 401, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	r := newAuthTestRouter()

	w := doJSON(r, "GET", "/api/v1/tasks", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}

	w = authedRequest(r, "GET", "/api/v1/tasks", "garbage-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}
}

func TestPublicPathsBypassAuth(t *testing.T) {
	r := newAuthTestRouter()

	w := doJSON(r, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health should be public, got %d", w.Code)
	}
}

func TestTaskOwnership(t *testing.T) {
	r := newAuthTestRouter()
	aliceToken, _ := registerAndLogin(t, r, "alice@taskorbit.io")
	bobToken, _ := registerAndLogin(t, r, "bob@taskorbit.io")

	w := authedRequest(r, "POST", "/api/v1/tasks", aliceToken, task.CreateRequest{Title: "Alice's task"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created task.Task
	_ = json.NewDecoder(w.Body).Decode(&created)

	// Bob cannot see or touch Alice's task.
	w = authedRequest(r, "GET", "/api/v1/tasks", bobToken, nil)
	var bobTasks []task.Task
	_ = json.NewDecoder(w.Body).Decode(&bobTasks)
	if len(bobTasks) != 0 {
		t.Fatalf("expected bob to see no tasks, got %d", len(bobTasks))
	}

	w = authedRequest(r, "GET", "/api/v1/tasks/"+created.ID, bobToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign task, got %d", w.Code)
	}

	w = authedRequest(r, "DELETE", "/api/v1/tasks/"+created.ID, bobToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting foreign task, got %d", w.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := newAuthTestRouter()

	w := doJSON(r, "POST", "/api/v1/auth/register", user.CreateRequest{
		Email:    "not-an-email",
		Name:     "X",
		Password: "Password123",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad email: expected 400, got %d", w.Code)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newAuthTestRouter()
	registerAndLogin(t, r, "carol@taskorbit.io")

	w := doJSON(r, "POST", "/api/v1/auth/register", user.CreateRequest{
		Email:    "carol@taskorbit.io",
		Name:     "Carol Again",
		Password: "Password123",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r := newAuthTestRouter()
	registerAndLogin(t, r, "dave@taskorbit.io")

	w := doJSON(r, "POST", "/api/v1/auth/login", user.LoginRequest{
		Email:    "dave@taskorbit.io",
		Password: "WrongPassword",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	r := newAuthTestRouter()
	w := doJSON(r, "POST", "/api/v1/auth/refresh", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
