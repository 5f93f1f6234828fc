package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const bedrockAnthropicVersion = "bedrock-2023-05-31"

// bedrockAPI is the part of the Bedrock runtime client used here.
type bedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient runs Anthropic models through AWS Bedrock so prompts and
// replies stay inside the AWS account.
type BedrockClient struct {
	client  bedrockAPI
	modelID string
}

// NewBedrockClient wraps a Bedrock runtime client for modelID.
func NewBedrockClient(client bedrockAPI, modelID string) *BedrockClient {
	if modelID == "" {
		modelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	return &BedrockClient{client: client, modelID: modelID}
}

// Complete implements Client.
func (b *BedrockClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(messagesRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        maxTokens,
		Messages:         []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke %s: %w", b.modelID, err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return parsed.text()
}
