package refine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAI refines through any OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAI(cfg Config, logger *zap.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" && cfg.Endpoint == "" {
		return nil, fmt.Errorf("openai refiner: api key or endpoint is required")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		c.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(c),
		model:  model,
		logger: logger.Named("refine.openai"),
	}, nil
}

func (o *OpenAI) Refine(ctx context.Context, req Request) (string, error) {
	prompt := userPrompt(req)
	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		o.logger.Error("refine request failed",
			zap.String("section", string(req.Section)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrUnavailable)
	}

	o.logger.Info("refine request completed",
		zap.String("section", string(req.Section)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return toHTML(resp.Choices[0].Message.Content)
}
