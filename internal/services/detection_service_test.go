package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/domain/anomaly"
	"github.com/llmwatch/llmwatch/internal/events"
	"github.com/llmwatch/llmwatch/internal/testutil"
)

type detectionFixture struct {
	service   *DetectionService
	anomalies *testutil.MockAnomalyRepository
	incidents *testutil.MockIncidentRepository
}

func newDetectionFixture() *detectionFixture {
	log := testutil.NewTestLogger()
	registry := detector.NewRegistry(detector.DefaultConfig())
	anomalyRepo := testutil.NewMockAnomalyRepository()
	incidentRepo := testutil.NewMockIncidentRepository()
	hub := events.NewHub(log)
	telemetry := NewTelemetryService(config.TelemetryConfig{ServiceName: "test"}, log)
	rootCause := NewRootCauseService(nil, log)
	incidentSvc := NewIncidentService(incidentRepo, rootCause, registry, nil, hub, config.IncidentConfig{
		SeverityFloor: "SEV-2",
		Cooldown:      10 * time.Minute,
	}, log)

	return &detectionFixture{
		service:   NewDetectionService(registry, anomalyRepo, incidentSvc, telemetry, hub, log),
		anomalies: anomalyRepo,
		incidents: incidentRepo,
	}
}

// warmPair feeds n quiet batches for the token and latency metrics so
// both windows are ready with low variance.
func warmPair(t *testing.T, f *detectionFixture, n int) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		jitter := float64(i%5-2) / 2 * 10
		_, err := f.service.ObserveBatch(ctx, map[string]float64{
			"llm.tokens.total": 500 + jitter,
			"llm.latency.ms":   250 + jitter,
		}, base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("warm batch %d: %v", i, err)
		}
	}
}

func TestObserveBatchPersistsAnomaliesAndIncident(t *testing.T) {
	f := newDetectionFixture()
	warmPair(t, f, 50)
	ctx := context.Background()

	result, err := f.service.ObserveBatch(ctx, map[string]float64{
		"llm.tokens.total": 90000,
		"llm.latency.ms":   80000,
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Anomalies) != 2 {
		t.Fatalf("got %d anomalies, want 2", len(result.Anomalies))
	}
	if result.Pattern == nil {
		t.Fatal("expected a correlated pattern")
	}
	if result.Pattern.Name != "high_token_latency_spike" {
		t.Errorf("pattern = %q", result.Pattern.Name)
	}
	if result.Incident == nil {
		t.Fatal("expected an incident for a severe pattern")
	}

	if len(f.anomalies.Records) != 2 {
		t.Errorf("persisted %d anomaly records, want 2", len(f.anomalies.Records))
	}
	for _, record := range f.anomalies.Records {
		if record.PatternID != "high_token_latency_spike" {
			t.Errorf("record pattern = %q", record.PatternID)
		}
		if record.Severity == "" || record.Direction == "" {
			t.Error("record missing severity or direction")
		}
	}
	if len(f.incidents.Incidents) != 1 {
		t.Errorf("persisted %d incidents, want 1", len(f.incidents.Incidents))
	}
}

func TestObserveBatchQuietTraffic(t *testing.T) {
	f := newDetectionFixture()
	warmPair(t, f, 20)

	result, err := f.service.ObserveBatch(context.Background(), map[string]float64{
		"llm.tokens.total": 502,
		"llm.latency.ms":   251,
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Anomalies) != 0 {
		t.Errorf("got %d anomalies for quiet traffic", len(result.Anomalies))
	}
	if result.Pattern != nil {
		t.Error("expected no pattern")
	}
	if result.Incident != nil {
		t.Error("expected no incident")
	}
	if len(f.anomalies.Records) != 0 {
		t.Errorf("persisted %d records, want 0", len(f.anomalies.Records))
	}
}

func TestObserveBatchNonFinitePartial(t *testing.T) {
	f := newDetectionFixture()
	ctx := context.Background()

	result, err := f.service.ObserveBatch(ctx, map[string]float64{
		"llm.tokens.total": math.NaN(),
		"llm.latency.ms":   250,
	}, time.Now())
	if err == nil {
		t.Fatal("expected an error for a NaN value")
	}
	if result == nil {
		t.Fatal("expected a partial result alongside the error")
	}

	// The finite metric still landed.
	summary := f.service.Summary()
	if summary.TotalDatapoints != 1 {
		t.Errorf("datapoints = %d, want 1", summary.TotalDatapoints)
	}
	if _, ok := summary.PerMetric["llm.tokens.total"]; ok {
		t.Error("NaN metric must not create a window")
	}
}

func TestObserveSingleMetric(t *testing.T) {
	f := newDetectionFixture()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		jitter := float64(i%5-2) / 2 * 2
		if _, err := f.service.Observe(ctx, "llm.cost.per_request", 100+jitter, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("observe %d: %v", i, err)
		}
	}

	a, err := f.service.Observe(ctx, "llm.cost.per_request", 5000, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == nil {
		t.Fatal("expected an anomaly")
	}
	if a.Direction != detector.DirectionHigh {
		t.Errorf("direction = %q", a.Direction)
	}
	if len(f.anomalies.Records) != 1 {
		t.Errorf("persisted %d records, want 1", len(f.anomalies.Records))
	}
}

func TestListAnomaliesFilters(t *testing.T) {
	f := newDetectionFixture()
	warmPair(t, f, 50)
	ctx := context.Background()

	if _, err := f.service.ObserveBatch(ctx, map[string]float64{
		"llm.tokens.total": 90000,
		"llm.latency.ms":   80000,
	}, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, total, err := f.service.ListAnomalies(ctx, anomaly.Filter{MetricName: "llm.latency.ms"}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Fatalf("got %d/%d records, want 1/1", len(records), total)
	}
	if records[0].MetricName != "llm.latency.ms" {
		t.Errorf("metric = %q", records[0].MetricName)
	}

	counts, err := f.service.CountBySeverity(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum int
	for _, c := range counts {
		sum += c
	}
	if sum != 2 {
		t.Errorf("severity counts sum = %d, want 2", sum)
	}
}
