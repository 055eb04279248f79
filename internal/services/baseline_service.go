package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/domain/baseline"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
)

// BaselineService persists and restores detector state so learned
// baselines survive restarts, and seeds synthetic ones for cold starts.
type BaselineService struct {
	registry *detector.Registry
	repo     baseline.Repository
	logger   *logger.Logger
}

// NewBaselineService creates a new baseline service
func NewBaselineService(registry *detector.Registry, repo baseline.Repository, log *logger.Logger) *BaselineService {
	return &BaselineService{
		registry: registry,
		repo:     repo,
		logger:   log,
	}
}

// SnapshotNow captures the registry state and persists it.
func (s *BaselineService) SnapshotNow(ctx context.Context) (*baseline.Snapshot, error) {
	snap := s.registry.Snapshot()

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, errors.Internal("Failed to encode snapshot", err)
	}

	record := &baseline.Snapshot{
		CapturedAt: snap.CapturedAt,
		Metrics:    len(snap.Windows),
		Datapoints: snap.Datapoints,
		Data:       data,
	}
	if _, err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"snapshot_id": record.ID,
		"metrics":     record.Metrics,
		"datapoints":  record.Datapoints,
	}).Info("Baseline snapshot saved")
	return record, nil
}

// RestoreLatest loads the most recent persisted snapshot into the
// registry. Returns false when no snapshot exists.
func (s *BaselineService) RestoreLatest(ctx context.Context) (bool, error) {
	record, err := s.repo.Latest(ctx)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	var snap detector.Snapshot
	if err := json.Unmarshal(record.Data, &snap); err != nil {
		return false, errors.Internal("Failed to decode snapshot", err)
	}

	s.registry.Restore(snap)
	s.logger.WithFields(map[string]interface{}{
		"snapshot_id": record.ID,
		"captured_at": record.CapturedAt,
		"metrics":     record.Metrics,
	}).Info("Baseline restored from snapshot")
	return true, nil
}

// Generate seeds the registry with synthetic baselines so detection works
// from the first real request, then persists the seeded state. The seed
// makes generated baselines reproducible; pass 0 for a time-based one.
func (s *BaselineService) Generate(ctx context.Context, points int, anomalyRate float64, seed int64) (*baseline.Snapshot, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := detector.NewGenerator(points, anomalyRate, seed)

	cfg := s.registry.Config()
	snap := gen.BuildSnapshot(cfg.WindowSize, cfg.EWMAAlpha, time.Now())
	s.registry.Restore(snap)

	s.logger.WithFields(map[string]interface{}{
		"metrics":    len(snap.Windows),
		"datapoints": snap.Datapoints,
	}).Info("Synthetic baseline generated")

	return s.SnapshotNow(ctx)
}

// List returns persisted snapshot metadata, newest first.
func (s *BaselineService) List(ctx context.Context, limit int) ([]*baseline.Snapshot, error) {
	return s.repo.List(ctx, limit)
}

// ExportJSON returns the current registry state as a JSON document.
func (s *BaselineService) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s.registry.Snapshot(), "", "  ")
	if err != nil {
		return nil, errors.Internal("Failed to encode snapshot", err)
	}
	return data, nil
}

// ImportJSON replaces the registry state with an exported document.
func (s *BaselineService) ImportJSON(data []byte) error {
	var snap detector.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return errors.BadRequest("Snapshot document is not valid JSON")
	}
	if len(snap.Windows) == 0 {
		return errors.BadRequest("Snapshot document contains no windows")
	}
	s.registry.Restore(snap)
	return nil
}
