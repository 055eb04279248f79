package providers

import (
	"context"
	"fmt"

	"github.com/llmwatch/llmwatch/internal/collector"
	"github.com/llmwatch/llmwatch/internal/config"
)

// Completion is the outcome of one generation call. Token counts are the
// provider's own, approximated from text length when the provider does
// not meter them.
type Completion struct {
	Text           string `json:"text"`
	Model          string `json:"model"`
	PromptTokens   int    `json:"prompt_tokens"`
	ResponseTokens int    `json:"response_tokens"`
}

// Provider generates a completion for a prompt.
type Provider interface {
	// Name identifies the provider (gemini, openai, echo).
	Name() string

	// Complete generates a completion for the prompt.
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// New creates the provider selected by the configuration.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(cfg.GeminiAPIKey, cfg.Model), nil
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model), nil
	case "echo":
		return NewEcho(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// approxCompletionTokens fills missing token counts from text length.
func approxCompletionTokens(c *Completion, prompt string) {
	if c.PromptTokens == 0 {
		c.PromptTokens = collector.ApproxTokens(prompt)
	}
	if c.ResponseTokens == 0 {
		c.ResponseTokens = collector.ApproxTokens(c.Text)
	}
}
