package refine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

type Anthropic struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

func NewAnthropic(cfg Config, logger *zap.Logger) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic refiner: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}
	return &Anthropic{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  model,
		logger: logger.Named("refine.anthropic"),
	}, nil
}

func (a *Anthropic) Refine(ctx context.Context, req Request) (string, error) {
	prompt := userPrompt(req)
	start := time.Now()

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		System:    systemPrompt,
		MaxTokens: 2000,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		a.logger.Error("refine request failed",
			zap.String("section", string(req.Section)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			a.logger.Info("refine request completed",
				zap.String("section", string(req.Section)),
				zap.Duration("elapsed", time.Since(start)))
			return toHTML(*block.Text)
		}
	}
	return "", fmt.Errorf("%w: no text in response", ErrUnavailable)
}
