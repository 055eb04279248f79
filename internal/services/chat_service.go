package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/llmwatch/llmwatch/internal/collector"
	"github.com/llmwatch/llmwatch/internal/domain/interaction"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/metrics"
	"github.com/llmwatch/llmwatch/internal/providers"
)

// ChatResult is the full outcome of one gateway request: the completion
// itself, the metrics extracted from it and what detection made of them.
type ChatResult struct {
	InteractionID string             `json:"interaction_id"`
	Response      string             `json:"response"`
	Model         string             `json:"model"`
	LatencyMs     float64            `json:"latency_ms"`
	Metrics       map[string]float64 `json:"metrics"`
	Detection     *DetectionResult   `json:"detection"`
}

// ChatService is the LLM gateway: it proxies prompts to the configured
// provider and runs every exchange through collection and detection.
type ChatService struct {
	provider     providers.Provider
	collector    *collector.Collector
	detection    *DetectionService
	interactions interaction.Repository
	timeout      time.Duration
	logger       *logger.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	provider providers.Provider,
	coll *collector.Collector,
	detection *DetectionService,
	interactions interaction.Repository,
	timeout time.Duration,
	log *logger.Logger,
) *ChatService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatService{
		provider:     provider,
		collector:    coll,
		detection:    detection,
		interactions: interactions,
		timeout:      timeout,
		logger:       log,
	}
}

// Chat sends a prompt to the provider and observes the exchange. Provider
// failures are returned to the caller; detection or persistence failures
// are logged but never fail a request that produced a completion.
func (s *ChatService) Chat(ctx context.Context, prompt string) (*ChatResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	completion, err := s.provider.Complete(ctx, prompt)
	latency := time.Since(start)

	if err != nil {
		metrics.RecordLLMRequest(s.provider.Name(), "", "error", latency)
		s.logger.WithError(err).Error("Provider request failed")
		return nil, err
	}
	metrics.RecordLLMRequest(s.provider.Name(), completion.Model, "ok", latency)
	metrics.RecordTokens("prompt", float64(completion.PromptTokens))
	metrics.RecordTokens("response", float64(completion.ResponseTokens))

	values := s.collector.Collect(collector.Interaction{
		Prompt:         prompt,
		Response:       completion.Text,
		PromptTokens:   completion.PromptTokens,
		ResponseTokens: completion.ResponseTokens,
		LatencyMs:      latency.Seconds() * 1000,
	})
	metrics.RecordCost(values[collector.MetricCostPerRequest])

	ts := time.Now()
	detection, obsErr := s.detection.ObserveBatch(ctx, values, ts)
	if obsErr != nil {
		s.logger.WithError(obsErr).Warn("Some metrics were rejected by the detector")
	}

	result := &ChatResult{
		InteractionID: uuid.New().String(),
		Response:      completion.Text,
		Model:         completion.Model,
		LatencyMs:     latency.Seconds() * 1000,
		Metrics:       values,
		Detection:     detection,
	}

	record := &interaction.Interaction{
		ID:             result.InteractionID,
		Provider:       s.provider.Name(),
		Model:          completion.Model,
		PromptLength:   len(prompt),
		ResponseLength: len(completion.Text),
		PromptTokens:   completion.PromptTokens,
		ResponseTokens: completion.ResponseTokens,
		CostUSD:        values[collector.MetricCostPerRequest],
		LatencyMs:      result.LatencyMs,
		IsRefusal:      values[collector.MetricIsRefusal] == 1,
		IsTruncated:    values[collector.MetricIsTruncated] == 1,
		AnomalyCount:   len(detection.Anomalies),
	}
	if err := s.interactions.Create(ctx, record); err != nil {
		s.logger.ErrorWithErr(err, "Failed to persist interaction")
	}

	return result, nil
}

// SessionSummary returns the collector's running session counters.
func (s *ChatService) SessionSummary() collector.SessionSummary {
	return s.collector.Summary()
}

// Interactions lists persisted interactions, newest first.
func (s *ChatService) Interactions(ctx context.Context, limit, offset int) ([]*interaction.Interaction, int64, error) {
	return s.interactions.List(ctx, limit, offset)
}

// InteractionStats aggregates all persisted interactions.
func (s *ChatService) InteractionStats(ctx context.Context) (*interaction.Stats, error) {
	return s.interactions.Stats(ctx)
}

// Provider returns the name of the active provider.
func (s *ChatService) Provider() string {
	return s.provider.Name()
}
