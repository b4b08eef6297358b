package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/reputation"
	"github.com/mikey/mail-threat-filter/internal/utils"
)

// Source identifies records produced by this provider
const Source = "openai"

// OpenAIClient is a sender reputation provider backed by OpenAI chat completions
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI reputation provider
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Lookup asks the model for the reputation of the sender in req
func (c *OpenAIClient) Lookup(ctx context.Context, req *core.ReputationRequest) (*core.ReputationRecord, error) {
	prompt := reputation.BuildPrompt(c.textProcessor, req, c.maxBodySize)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reputation.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	rec, err := reputation.DecodeResponse(c.textProcessor, resp.Choices[0].Message.Content, req, Source)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Sender reputation received",
		zap.String("model", c.modelName),
		zap.String("request_id", resp.ID),
		zap.Bool("is_spam", rec.IsSpam),
		zap.Float64("score", rec.Score))
	return rec, nil
}
