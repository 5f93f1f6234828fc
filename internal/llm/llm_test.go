package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

func TestAnthropicClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, 100, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[0].Content)
		assert.Empty(t, req.AnthropicVersion)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"  interested \n"}],"usage":{"input_tokens":5,"output_tokens":1}}`))
	}))
	defer server.Close()

	c := NewAnthropicClient(server.URL, "test-key", "claude-test", 5*time.Second)
	out, err := c.Complete(context.Background(), "hello", 100)
	require.NoError(t, err)
	assert.Equal(t, "interested", out)
}

func TestAnthropicClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
	}))
	defer server.Close()

	c := NewAnthropicClient(server.URL, "k", "", 5*time.Second)
	assert.Equal(t, "claude-sonnet-4-20250514", c.Model())
	_, err := c.Complete(context.Background(), "hi", 10)
	require.Error(t, err)
	assert.Equal(t, 529, policy.StatusCode(err))
	assert.False(t, policy.IsRetryable(err))
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	c := NewAnthropicClient(server.URL, "k", "", 5*time.Second)
	_, err := c.Complete(context.Background(), "hi", 10)
	assert.Error(t, err)
}

type fakeBedrock struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeBedrock) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestBedrockClient_Complete(t *testing.T) {
	fake := &fakeBedrock{body: `{"content":[{"type":"text","text":"QUESTION"}],"stop_reason":"end_turn"}`}
	c := NewBedrockClient(fake, "anthropic.claude-3-haiku-20240307-v1:0")

	out, err := c.Complete(context.Background(), "classify me", 100)
	require.NoError(t, err)
	assert.Equal(t, "QUESTION", out)

	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(fake.input.ModelId))
	var sent map[string]any
	require.NoError(t, json.Unmarshal(fake.input.Body, &sent))
	assert.Equal(t, "bedrock-2023-05-31", sent["anthropic_version"])
	assert.Equal(t, float64(100), sent["max_tokens"])
	assert.NotContains(t, sent, "model")
}

func TestBedrockClient_Error(t *testing.T) {
	c := NewBedrockClient(&fakeBedrock{err: errors.New("throttled")}, "")
	_, err := c.Complete(context.Background(), "x", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.claude-3-sonnet-20240229-v1:0")
}

func TestOpenAIClient_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer oa-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 0.3, req.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"main_service\":\"plumbing\"}"}}]}`))
	}))
	defer server.Close()

	c := NewOpenAIClient(server.URL, "oa-key", "", 5*time.Second)
	out, err := c.Chat(context.Background(), []ChatMessage{
		{Role: "system", Content: ResearchSystemPrompt},
		{Role: "user", Content: "site text"},
	}, 0.3, 0)
	require.NoError(t, err)
	assert.Equal(t, `{"main_service":"plumbing"}`, out)
}

func TestOpenAIClient_APIErrorAndNoChoices(t *testing.T) {
	for _, payload := range []string{`{"error":{"message":"bad model"}}`, `{"choices":[]}`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		}))
		c := NewOpenAIClient(server.URL, "k", "", 5*time.Second)
		_, err := c.Complete(context.Background(), "x", 10)
		server.Close()
		assert.Error(t, err, payload)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	_, err := New(ctx, cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.Anthropic.APIKey = "sk-ant-test"
	client, err := New(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, client)

	cfg.LLM.Backend = "bedrock"
	_, err = New(ctx, cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.LLM.Backend = "gemini"
	_, err = New(ctx, cfg)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
}
