package testutil

import (
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
)

// NewTestLogger returns a logger quiet enough for test output.
func NewTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}
