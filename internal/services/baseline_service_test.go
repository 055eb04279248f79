package services

import (
	"context"
	"testing"
	"time"

	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/testutil"
)

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	log := testutil.NewTestLogger()
	repo := testutil.NewMockBaselineRepository()
	registry := detector.NewRegistry(detector.DefaultConfig())
	service := NewBaselineService(registry, repo, log)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		jitter := float64(i%5-2) / 2 * 10
		if _, err := registry.Observe("llm.latency.ms", 250+jitter, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("observe %d: %v", i, err)
		}
	}

	record, err := service.SnapshotNow(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if record.Metrics != 1 || record.Datapoints != 30 {
		t.Errorf("snapshot metadata = %d metrics / %d datapoints", record.Metrics, record.Datapoints)
	}
	if len(record.Data) == 0 {
		t.Fatal("snapshot payload is empty")
	}

	// A fresh registry restored from the snapshot behaves like the
	// original: ready window, same baseline.
	restored := detector.NewRegistry(detector.DefaultConfig())
	restoredService := NewBaselineService(restored, repo, log)

	ok, err := restoredService.RestoreLatest(ctx)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a snapshot to restore from")
	}

	want := registry.Summary()
	got := restored.Summary()
	if got.TotalDatapoints != want.TotalDatapoints {
		t.Errorf("datapoints = %d, want %d", got.TotalDatapoints, want.TotalDatapoints)
	}
	if got.WindowsReady != 1 {
		t.Errorf("windows ready = %d, want 1", got.WindowsReady)
	}
	gotStats := got.PerMetric["llm.latency.ms"]
	wantStats := want.PerMetric["llm.latency.ms"]
	if gotStats.Mean != wantStats.Mean || gotStats.EWMA != wantStats.EWMA {
		t.Errorf("restored stats %+v, want %+v", gotStats, wantStats)
	}
}

func TestRestoreLatestWithoutSnapshot(t *testing.T) {
	service := NewBaselineService(detector.NewRegistry(detector.DefaultConfig()), testutil.NewMockBaselineRepository(), testutil.NewTestLogger())

	ok, err := service.RestoreLatest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no snapshot to restore")
	}
}

func TestGenerateSeedsRegistry(t *testing.T) {
	repo := testutil.NewMockBaselineRepository()
	registry := detector.NewRegistry(detector.DefaultConfig())
	service := NewBaselineService(registry, repo, testutil.NewTestLogger())

	record, err := service.Generate(context.Background(), 500, 0.05, 42)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	metricCount := len(detector.BaselineMetrics())
	if record.Metrics != metricCount {
		t.Errorf("snapshot metrics = %d, want %d", record.Metrics, metricCount)
	}

	summary := registry.Summary()
	if summary.MetricsTracked != metricCount {
		t.Errorf("tracked = %d, want %d", summary.MetricsTracked, metricCount)
	}
	if summary.WindowsReady != metricCount {
		t.Errorf("ready = %d, want %d", summary.WindowsReady, metricCount)
	}
	if len(repo.Snapshots) != 1 {
		t.Errorf("persisted %d snapshots, want 1", len(repo.Snapshots))
	}
}

func TestExportImportJSON(t *testing.T) {
	registry := detector.NewRegistry(detector.DefaultConfig())
	service := NewBaselineService(registry, testutil.NewMockBaselineRepository(), testutil.NewTestLogger())

	if _, err := service.Generate(context.Background(), 100, 0.05, 7); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	data, err := service.ExportJSON()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	other := detector.NewRegistry(detector.DefaultConfig())
	otherService := NewBaselineService(other, testutil.NewMockBaselineRepository(), testutil.NewTestLogger())
	if err := otherService.ImportJSON(data); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if other.Summary().MetricsTracked != registry.Summary().MetricsTracked {
		t.Error("imported registry does not match exported state")
	}
}

func TestImportJSONRejectsGarbage(t *testing.T) {
	service := NewBaselineService(detector.NewRegistry(detector.DefaultConfig()), testutil.NewMockBaselineRepository(), testutil.NewTestLogger())

	if err := service.ImportJSON([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if err := service.ImportJSON([]byte(`{"windows": {}}`)); err == nil {
		t.Error("expected error for empty snapshot")
	}
}
