package compose

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/jobpilot/outreach/internal/config"
	"github.com/jobpilot/outreach/internal/domain"
)

// ModelInvoker abstracts the generative backend so the composer can be
// tested without AWS.
type ModelInvoker interface {
	Invoke(ctx context.Context, system, prompt string) (string, error)
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// BedrockInvoker calls an Anthropic model through AWS Bedrock.
type BedrockInvoker struct {
	client      *bedrockruntime.Client
	modelID     string
	maxTokens   int
	temperature float64
}

// NewBedrockInvoker creates a Bedrock-backed model invoker using the default
// AWS credential chain.
func NewBedrockInvoker(ctx context.Context, cfg config.BedrockConfig) (*BedrockInvoker, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &BedrockInvoker{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		modelID:     cfg.ModelID,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Invoke sends one user prompt and returns the model's text reply.
func (b *BedrockInvoker) Invoke(ctx context.Context, system, prompt string) (string, error) {
	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        b.maxTokens,
		System:           system,
		Temperature:      b.temperature,
		Messages: []bedrockMessage{
			{Role: "user", Content: []bedrockContentBlock{{Type: "text", Text: prompt}}},
		},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal bedrock request: %w", err)
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", domain.ExternalFailure("bedrock", err)
	}

	var parsed bedrockResponse
	if err := json.Unmarshal(output.Body, &parsed); err != nil {
		return "", domain.ExternalFailure("bedrock", fmt.Errorf("decoding response: %w", err))
	}
	if len(parsed.Content) == 0 {
		return "", domain.ExternalFailure("bedrock", fmt.Errorf("empty response, stop_reason=%s", parsed.StopReason))
	}
	return parsed.Content[0].Text, nil
}
