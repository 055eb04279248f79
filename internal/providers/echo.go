package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Echo is an offline provider for tests and keyless demo runs. It answers
// with a canned reflection of the prompt after a short simulated delay.
type Echo struct {
	delay time.Duration
}

// NewEcho creates the offline echo provider.
func NewEcho() *Echo {
	return &Echo{delay: 20 * time.Millisecond}
}

// Name identifies the provider.
func (e *Echo) Name() string { return "echo" }

// Complete reflects the prompt back as a deterministic canned response.
func (e *Echo) Complete(ctx context.Context, prompt string) (*Completion, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(e.delay):
	}

	summary := prompt
	if len(summary) > 80 {
		summary = summary[:80] + "..."
	}
	text := fmt.Sprintf("Echo response to: %s", strings.TrimSpace(summary))

	c := &Completion{
		Text:  text,
		Model: "echo-1",
	}
	approxCompletionTokens(c, prompt)
	return c, nil
}
