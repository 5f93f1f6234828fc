package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient policy.HTTPDoer
}

// NewAnthropicClient creates a client for model. Empty values get the
// public endpoint and the default Sonnet model.
func NewAnthropicClient(baseURL, apiKey, model string, timeout time.Duration) *AnthropicClient {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: policy.NewHTTPClient(timeout),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *AnthropicClient) SetHTTPClient(client policy.HTTPDoer) {
	c.httpClient = client
}

// Model returns the model identifier sent with each request.
func (c *AnthropicClient) Model() string { return c.model }

// Complete implements Client. Non-2xx answers come back as *policy.StatusError.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", policy.WrapTransport("anthropic", err)
	}
	data, err := policy.ReadResponse("anthropic messages", resp)
	if err != nil {
		return "", err
	}

	var parsed messagesResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	log.Debug("anthropic completion",
		"model", c.model,
		"input_tokens", parsed.Usage.InputTokens,
		"output_tokens", parsed.Usage.OutputTokens,
	)
	return parsed.text()
}
