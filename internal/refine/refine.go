// Package refine rewrites note text through a language model. Providers
// return markdown which is rendered to the editor's HTML before it is
// handed back.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"carenote/internal/clinical"
	"carenote/internal/richtext"
)

var (
	// ErrUnavailable wraps transport and provider failures.
	ErrUnavailable     = errors.New("refinement service unavailable")
	ErrNothingToRefine = errors.New("nothing to refine")
	ErrUnknownProvider = errors.New("unknown refinement provider")
)

type Request struct {
	Section  clinical.Section
	AgeGroup clinical.AgeGroup
	Modality clinical.Modality
	Text     string
}

type Config struct {
	Provider string // simulated, openai, anthropic
	Endpoint string
	Model    string
	APIKey   string
	Delay    time.Duration // simulated provider only
}

type Refiner interface {
	Refine(ctx context.Context, req Request) (string, error)
}

func New(cfg Config, logger *zap.Logger) (Refiner, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "simulated":
		return &Simulated{Delay: cfg.Delay}, nil
	case "openai":
		return NewOpenAI(cfg, logger)
	case "anthropic":
		return NewAnthropic(cfg, logger)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

const systemPrompt = `You are a clinical documentation assistant for licensed therapists.
Rewrite the note so it is clear, specific and ready for insurer review.
Keep every clinical fact; never invent symptoms, diagnoses or history.
Use objective, person-first language. Answer with the rewritten note only, in markdown.`

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Section: %s\n", strings.ReplaceAll(string(req.Section), "_", " "))
	if req.AgeGroup != "" {
		fmt.Fprintf(&b, "Client age group: %s\n", req.AgeGroup.Label())
	}
	if req.Modality != "" {
		fmt.Fprintf(&b, "Treatment modality: %s\n", req.Modality)
	}
	b.WriteString("\nNote:\n")
	b.WriteString(richtext.PlainText(req.Text))
	return b.String()
}

func toHTML(markdown string) (string, error) {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return richtext.FromMarkdown(markdown)
}
