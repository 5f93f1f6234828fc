// Package llm gives the rest of the pipeline a single "complete this prompt"
// capability, backed by the Anthropic API or by Claude on AWS Bedrock, plus
// an OpenAI chat client for structured website analysis.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/storage"
)

var log = logger.Named("llm")

// ErrNotConfigured is returned when the selected backend has no credentials.
var ErrNotConfigured = errors.New("llm backend not configured")

// Client completes a single user prompt. Implementations return the model's
// text with surrounding whitespace trimmed.
type Client interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// New builds the Client selected by cfg.LLM.Backend.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLM.Backend {
	case "bedrock":
		if cfg.Bedrock.ModelID == "" {
			return nil, fmt.Errorf("bedrock: %w", ErrNotConfigured)
		}
		rt, err := storage.NewBedrockClient(ctx, storage.AWSOptions{
			Region:  cfg.Bedrock.Region,
			Profile: cfg.AWS.Profile,
		})
		if err != nil {
			return nil, err
		}
		log.Info("using bedrock backend", "model", cfg.Bedrock.ModelID, "region", cfg.Bedrock.Region)
		return NewBedrockClient(rt, cfg.Bedrock.ModelID), nil
	case "", "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrNotConfigured)
		}
		return NewAnthropicClient(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Timeouts.Long()), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.LLM.Backend)
	}
}

// textBlock is the content block shape shared by the Anthropic API and
// Anthropic models on Bedrock.
type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesRequest is the Anthropic messages body. AnthropicVersion is only
// set for Bedrock, which takes the version in the body instead of a header.
type messagesRequest struct {
	AnthropicVersion string    `json:"anthropic_version,omitempty"`
	Model            string    `json:"model,omitempty"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
}

type messagesResponse struct {
	Content    []textBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r messagesResponse) text() (string, error) {
	for _, b := range r.Content {
		if b.Type == "" || b.Type == "text" {
			return strings.TrimSpace(b.Text), nil
		}
	}
	return "", errors.New("response has no text content")
}
