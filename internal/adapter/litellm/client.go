// Package litellm provides an HTTP client for the LiteLLM proxy.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Strob0t/TaskOrbit/internal/port/llm"
	"github.com/Strob0t/TaskOrbit/internal/resilience"
)

// Model represents a configured model in LiteLLM.
type Model struct {
	ModelName string            `json:"model_name"`
	Provider  string            `json:"litellm_provider,omitempty"`
	ModelID   string            `json:"model_id,omitempty"`
	ModelInfo map[string]any    `json:"model_info,omitempty"`
	Params    map[string]string `json:"litellm_params,omitempty"`
}

// DiscoveredModel is a model merged with its current health status.
type DiscoveredModel struct {
	ModelName   string `json:"model_name"`
	ModelID     string `json:"model_id,omitempty"`
	Provider    string `json:"provider,omitempty"`
	MaxTokens   int    `json:"max_tokens,omitempty"`
	Status      string `json:"status"` // "reachable" or "unreachable"
	ErrorDetail string `json:"error_detail,omitempty"`
}

// HealthReport is the per-endpoint health breakdown from the proxy.
type HealthReport struct {
	HealthyEndpoints   []ModelHealth `json:"healthy_endpoints"`
	UnhealthyEndpoints []ModelHealth `json:"unhealthy_endpoints"`
	HealthyCount       int           `json:"healthy_count"`
	UnhealthyCount     int           `json:"unhealthy_count"`
}

// ModelHealth represents the health of a single model endpoint.
type ModelHealth struct {
	Model   string `json:"model"`
	APIBase string `json:"api_base,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client talks to the LiteLLM proxy API.
type Client struct {
	baseURL    string
	masterKey  string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

var _ llm.Client = (*Client)(nil)

// NewClient creates a new LiteLLM client. The HTTP timeout is generous
// because chat completions can take tens of seconds.
func NewClient(baseURL, masterKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		masterKey: masterKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// ChatCompletion sends an OpenAI-compatible chat completion request
// through the proxy.
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat completion: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/chat/completions", body)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	var result llm.ChatCompletionResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal chat completion: %w", err)
	}
	return &result, nil
}

// ListModels returns all configured models from LiteLLM.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/model/info", nil)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	var result struct {
		Data []Model `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal models: %w", err)
	}
	return result.Data, nil
}

// DiscoverModels lists configured models annotated with health status.
// Health information is advisory: when the health probe itself fails,
// models are reported as reachable rather than failing discovery.
func (c *Client) DiscoverModels(ctx context.Context) ([]DiscoveredModel, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	unhealthy := map[string]string{}
	if report, err := c.HealthDetailed(ctx); err == nil {
		for _, e := range report.UnhealthyEndpoints {
			detail := e.Error
			if detail == "" {
				detail = "unhealthy"
			}
			unhealthy[e.Model] = detail
		}
	}

	result := make([]DiscoveredModel, 0, len(models))
	for _, m := range models {
		d := DiscoveredModel{
			ModelName: m.ModelName,
			ModelID:   m.ModelID,
			Provider:  providerOf(m),
			MaxTokens: maxTokensOf(m),
			Status:    "reachable",
		}
		if detail, ok := unhealthy[m.ModelName]; ok {
			d.Status = "unreachable"
			d.ErrorDetail = detail
		}
		result = append(result, d)
	}
	return result, nil
}

// Health checks if LiteLLM is healthy.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err == nil, err
}

// HealthDetailed returns the per-endpoint health breakdown.
func (c *Client) HealthDetailed(ctx context.Context) (*HealthReport, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}

	var report HealthReport
	if err := json.Unmarshal(resp, &report); err != nil {
		return nil, fmt.Errorf("unmarshal health: %w", err)
	}
	return &report, nil
}

// providerOf derives the provider from the litellm_params model prefix
// ("openai/gpt-4o" -> "openai"), falling back to the declared provider.
func providerOf(m Model) string {
	if p := m.Params["model"]; p != "" {
		if i := strings.IndexByte(p, '/'); i > 0 {
			return p[:i]
		}
	}
	return m.Provider
}

func maxTokensOf(m Model) int {
	if v, ok := m.ModelInfo["max_tokens"].(float64); ok {
		return int(v)
	}
	return 0
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.masterKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.masterKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("litellm API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
