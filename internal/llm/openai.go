package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mindtek/leadchat/internal/models"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIClient(apiKey string, model string, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []models.Message, opts Options) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    toOpenAIMessages(messages),
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
		},
	)
	if err != nil {
		c.logger.Error("Chat completion failed",
			zap.Error(err),
			zap.String("model", c.model))
		return "", mapProviderError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

// mapProviderError translates OpenAI API failures into the error kinds the
// HTTP boundary distinguishes. Everything else passes through wrapped.
func mapProviderError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion: %w", err)
	}

	code, _ := apiErr.Code.(string)
	switch {
	case code == "insufficient_quota":
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
	case code == "invalid_api_key" || apiErr.HTTPStatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	default:
		return fmt.Errorf("chat completion: %w", err)
	}
}
