package providers

import (
	"context"

	"github.com/llmwatch/llmwatch/internal/integrations"
)

// Gemini generates completions through the Gemini REST API.
type Gemini struct {
	client *integrations.GeminiClient
}

// NewGemini creates a Gemini-backed provider.
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{client: integrations.NewGeminiClient(apiKey, model)}
}

// Name identifies the provider.
func (g *Gemini) Name() string { return "gemini" }

// Complete generates a completion for the prompt.
func (g *Gemini) Complete(ctx context.Context, prompt string) (*Completion, error) {
	res, err := g.client.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	c := &Completion{
		Text:           res.Text,
		Model:          g.client.Model(),
		PromptTokens:   res.PromptTokens,
		ResponseTokens: res.ResponseTokens,
	}
	approxCompletionTokens(c, prompt)
	return c, nil
}
