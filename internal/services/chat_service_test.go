package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/llmwatch/llmwatch/internal/collector"
	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/events"
	"github.com/llmwatch/llmwatch/internal/providers"
	"github.com/llmwatch/llmwatch/internal/testutil"
)

type chatFixture struct {
	service      *ChatService
	provider     *testutil.MockProvider
	interactions *testutil.MockInteractionRepository
	anomalies    *testutil.MockAnomalyRepository
}

func newChatFixture(provider *testutil.MockProvider) *chatFixture {
	log := testutil.NewTestLogger()
	registry := detector.NewRegistry(detector.DefaultConfig())
	anomalyRepo := testutil.NewMockAnomalyRepository()
	incidentRepo := testutil.NewMockIncidentRepository()
	interactionRepo := testutil.NewMockInteractionRepository()
	hub := events.NewHub(log)
	telemetry := NewTelemetryService(config.TelemetryConfig{ServiceName: "test"}, log)
	rootCause := NewRootCauseService(nil, log)
	incidentSvc := NewIncidentService(incidentRepo, rootCause, registry, nil, hub, config.IncidentConfig{
		SeverityFloor: "SEV-2",
		Cooldown:      10 * time.Minute,
	}, log)
	detection := NewDetectionService(registry, anomalyRepo, incidentSvc, telemetry, hub, log)
	coll := collector.New(0.00025, 0.0005, 32000)

	return &chatFixture{
		service:      NewChatService(provider, coll, detection, interactionRepo, 10*time.Second, log),
		provider:     provider,
		interactions: interactionRepo,
		anomalies:    anomalyRepo,
	}
}

func TestChatCollectsAndPersists(t *testing.T) {
	provider := testutil.NewMockProvider(providers.Completion{
		Text:           "The capital of France is Paris.",
		Model:          "mock-model",
		PromptTokens:   12,
		ResponseTokens: 8,
	})
	f := newChatFixture(provider)

	result, err := f.service.Chat(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Response != "The capital of France is Paris." {
		t.Errorf("response = %q", result.Response)
	}
	if result.Model != "mock-model" {
		t.Errorf("model = %q", result.Model)
	}
	if result.LatencyMs < 0 {
		t.Errorf("latency = %v", result.LatencyMs)
	}
	if len(result.Metrics) != 17 {
		t.Errorf("collected %d metrics, want 17", len(result.Metrics))
	}
	if result.Metrics[collector.MetricTokensTotal] != 20 {
		t.Errorf("tokens total = %v, want 20", result.Metrics[collector.MetricTokensTotal])
	}
	if result.Detection == nil {
		t.Fatal("expected a detection result")
	}

	if len(f.interactions.Interactions) != 1 {
		t.Fatalf("persisted %d interactions, want 1", len(f.interactions.Interactions))
	}
	record := f.interactions.Interactions[result.InteractionID]
	if record == nil {
		t.Fatal("interaction not stored under its ID")
	}
	if record.Provider != "mock" || record.Model != "mock-model" {
		t.Errorf("record provider/model = %q/%q", record.Provider, record.Model)
	}
	if record.PromptTokens != 12 || record.ResponseTokens != 8 {
		t.Errorf("record tokens = %d/%d", record.PromptTokens, record.ResponseTokens)
	}
	if record.IsRefusal {
		t.Error("plain answer must not be flagged as refusal")
	}
}

func TestChatFlagsRefusal(t *testing.T) {
	provider := testutil.NewMockProvider(providers.Completion{
		Text:           "I cannot help with that request.",
		Model:          "mock-model",
		PromptTokens:   10,
		ResponseTokens: 7,
	})
	f := newChatFixture(provider)

	result, err := f.service.Chat(context.Background(), "Do something questionable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Metrics[collector.MetricIsRefusal] != 1 {
		t.Error("expected refusal gauge to be 1")
	}

	record := f.interactions.Interactions[result.InteractionID]
	if !record.IsRefusal {
		t.Error("expected interaction to be flagged as refusal")
	}
}

func TestChatProviderErrorPropagates(t *testing.T) {
	provider := testutil.NewMockProvider()
	provider.Err = errors.New("upstream timeout")
	f := newChatFixture(provider)

	_, err := f.service.Chat(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected provider error")
	}
	if len(f.interactions.Interactions) != 0 {
		t.Error("failed requests must not be persisted")
	}
}

func TestChatSessionSummaryAccumulates(t *testing.T) {
	f := newChatFixture(testutil.NewMockProvider())

	for i := 0; i < 3; i++ {
		if _, err := f.service.Chat(context.Background(), "hi"); err != nil {
			t.Fatalf("chat %d: %v", i, err)
		}
	}

	summary := f.service.SessionSummary()
	if summary.TotalRequests != 3 {
		t.Errorf("request count = %d, want 3", summary.TotalRequests)
	}
	if summary.TotalTokens == 0 {
		t.Error("expected token accumulation")
	}

	stats, err := f.service.InteractionStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalRequests != 3 {
		t.Errorf("persisted requests = %d, want 3", stats.TotalRequests)
	}
}
