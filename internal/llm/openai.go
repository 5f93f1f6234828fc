package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient policy.HTTPDoer
}

// ChatMessage is one message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a chat client; model defaults to gpt-4o.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: policy.NewHTTPClient(timeout),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *OpenAIClient) SetHTTPClient(client policy.HTTPDoer) {
	c.httpClient = client
}

// Chat sends messages and returns the first choice's content, unchanged.
func (c *OpenAIClient) Chat(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", policy.WrapTransport("openai", err)
	}
	data, err := policy.ReadResponse("openai chat", resp)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Complete implements Client with a single user message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	out, err := c.Chat(ctx, []ChatMessage{{Role: "user", Content: prompt}}, 0.3, maxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
