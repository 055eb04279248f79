package services

import (
	"context"
	"testing"
	"time"

	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/domain/anomaly"
	"github.com/llmwatch/llmwatch/internal/domain/baseline"
	"github.com/llmwatch/llmwatch/internal/domain/interaction"
	"github.com/llmwatch/llmwatch/internal/testutil"
)

func newJobFixture(cfg config.SnapshotConfig) (*JobService, *testutil.MockAnomalyRepository, *testutil.MockInteractionRepository, *testutil.MockBaselineRepository) {
	log := testutil.NewTestLogger()
	anomalyRepo := testutil.NewMockAnomalyRepository()
	interactionRepo := testutil.NewMockInteractionRepository()
	baselineRepo := testutil.NewMockBaselineRepository()
	registry := detector.NewRegistry(detector.DefaultConfig())
	baselineSvc := NewBaselineService(registry, baselineRepo, log)

	return NewJobService(baselineSvc, anomalyRepo, interactionRepo, baselineRepo, cfg, log),
		anomalyRepo, interactionRepo, baselineRepo
}

func TestJobServiceStartStop(t *testing.T) {
	service, _, _, _ := newJobFixture(config.SnapshotConfig{
		Enabled:       true,
		Schedule:      "@hourly",
		RetentionDays: 30,
	})

	if err := service.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !service.IsRunning() {
		t.Error("expected scheduler to be running")
	}
	// Second start is a no-op.
	if err := service.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	service.Stop()
	if service.IsRunning() {
		t.Error("expected scheduler to be stopped")
	}
}

func TestJobServiceInvalidSchedule(t *testing.T) {
	service, _, _, _ := newJobFixture(config.SnapshotConfig{
		Enabled:  true,
		Schedule: "not a schedule",
	})

	if err := service.Start(); err == nil {
		t.Error("expected error for invalid cron schedule")
		service.Stop()
	}
}

func TestRunRetentionPrunesOldRows(t *testing.T) {
	service, anomalyRepo, interactionRepo, baselineRepo := newJobFixture(config.SnapshotConfig{
		RetentionDays: 30,
	})
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -60)
	fresh := time.Now()

	anomalyRepo.Records[1] = &anomaly.Record{ID: 1, MetricName: "llm.latency.ms", DetectedAt: old}
	anomalyRepo.Records[2] = &anomaly.Record{ID: 2, MetricName: "llm.latency.ms", DetectedAt: fresh}
	interactionRepo.Interactions["a"] = &interaction.Interaction{ID: "a", CreatedAt: old}
	interactionRepo.Interactions["b"] = &interaction.Interaction{ID: "b", CreatedAt: fresh}
	baselineRepo.Snapshots[1] = &baseline.Snapshot{ID: 1, CapturedAt: old}
	baselineRepo.Snapshots[2] = &baseline.Snapshot{ID: 2, CapturedAt: fresh}
	baselineRepo.NextID = 3

	if err := service.RunRetention(ctx); err != nil {
		t.Fatalf("retention failed: %v", err)
	}

	if len(anomalyRepo.Records) != 1 {
		t.Errorf("anomalies remaining = %d, want 1", len(anomalyRepo.Records))
	}
	if _, ok := anomalyRepo.Records[2]; !ok {
		t.Error("fresh anomaly was pruned")
	}
	if len(interactionRepo.Interactions) != 1 {
		t.Errorf("interactions remaining = %d, want 1", len(interactionRepo.Interactions))
	}
	if len(baselineRepo.Snapshots) != 1 {
		t.Errorf("snapshots remaining = %d, want 1", len(baselineRepo.Snapshots))
	}
}

func TestRetentionKeepsNewestSnapshotEvenWhenOld(t *testing.T) {
	service, _, _, baselineRepo := newJobFixture(config.SnapshotConfig{
		RetentionDays: 30,
	})

	old := time.Now().AddDate(0, 0, -90)
	older := time.Now().AddDate(0, 0, -120)
	baselineRepo.Snapshots[1] = &baseline.Snapshot{ID: 1, CapturedAt: older}
	baselineRepo.Snapshots[2] = &baseline.Snapshot{ID: 2, CapturedAt: old}
	baselineRepo.NextID = 3

	if err := service.RunRetention(context.Background()); err != nil {
		t.Fatalf("retention failed: %v", err)
	}

	if _, ok := baselineRepo.Snapshots[2]; !ok {
		t.Error("the most recent snapshot must survive retention")
	}
	if len(baselineRepo.Snapshots) != 1 {
		t.Errorf("snapshots remaining = %d, want 1", len(baselineRepo.Snapshots))
	}
}
