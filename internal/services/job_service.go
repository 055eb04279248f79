package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/domain/anomaly"
	"github.com/llmwatch/llmwatch/internal/domain/baseline"
	"github.com/llmwatch/llmwatch/internal/domain/interaction"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
)

// JobService runs the background schedules: periodic baseline snapshots
// and retention cleanup of old rows.
type JobService struct {
	baseline     *BaselineService
	anomalies    anomaly.Repository
	interactions interaction.Repository
	baselines    baseline.Repository
	cfg          config.SnapshotConfig
	logger       *logger.Logger

	scheduler    *cron.Cron
	runningMutex sync.Mutex
	isRunning    bool
}

// NewJobService creates a new job service
func NewJobService(
	baselineService *BaselineService,
	anomalies anomaly.Repository,
	interactions interaction.Repository,
	baselines baseline.Repository,
	cfg config.SnapshotConfig,
	log *logger.Logger,
) *JobService {
	return &JobService{
		baseline:     baselineService,
		anomalies:    anomalies,
		interactions: interactions,
		baselines:    baselines,
		cfg:          cfg,
		logger:       log,
	}
}

// Start registers the schedules and starts the scheduler. Safe to call
// once; subsequent calls are no-ops.
func (s *JobService) Start() error {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()
	if s.isRunning {
		return nil
	}

	s.scheduler = cron.New()

	if s.cfg.Enabled {
		if _, err := s.scheduler.AddFunc(s.cfg.Schedule, s.runSnapshot); err != nil {
			return fmt.Errorf("invalid snapshot schedule %q: %w", s.cfg.Schedule, err)
		}
	}

	if s.cfg.RetentionDays > 0 {
		if _, err := s.scheduler.AddFunc("@daily", s.runRetention); err != nil {
			return fmt.Errorf("failed to register retention job: %w", err)
		}
	}

	s.scheduler.Start()
	s.isRunning = true
	s.logger.WithFields(map[string]interface{}{
		"snapshot_enabled":  s.cfg.Enabled,
		"snapshot_schedule": s.cfg.Schedule,
		"retention_days":    s.cfg.RetentionDays,
	}).Info("Background jobs started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *JobService) Stop() {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()
	if !s.isRunning {
		return
	}
	<-s.scheduler.Stop().Done()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *JobService) IsRunning() bool {
	s.runningMutex.Lock()
	defer s.runningMutex.Unlock()
	return s.isRunning
}

func (s *JobService) runSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.baseline.SnapshotNow(ctx); err != nil {
		s.logger.ErrorWithErr(err, "Scheduled baseline snapshot failed")
	}
}

func (s *JobService) runRetention() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.RunRetention(ctx); err != nil {
		s.logger.ErrorWithErr(err, "Retention cleanup failed")
	}
}

// RunRetention deletes rows older than the configured retention period.
// Exposed so it can be triggered manually.
func (s *JobService) RunRetention(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)

	anomaliesRemoved, err := s.anomalies.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	interactionsRemoved, err := s.interactions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	snapshotsRemoved, err := s.baselines.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"cutoff":       cutoff.Format(time.RFC3339),
		"anomalies":    anomaliesRemoved,
		"interactions": interactionsRemoved,
		"snapshots":    snapshotsRemoved,
	}).Info("Retention cleanup completed")
	return nil
}
