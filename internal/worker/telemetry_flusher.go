package worker

import (
	"context"
	"time"

	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/services"
)

// TelemetryFlusher periodically drains the telemetry queue to Datadog.
type TelemetryFlusher struct {
	telemetry *services.TelemetryService
	interval  time.Duration
	logger    *logger.Logger
}

// NewTelemetryFlusher creates a new telemetry flusher worker
func NewTelemetryFlusher(telemetry *services.TelemetryService, interval time.Duration, log *logger.Logger) *TelemetryFlusher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &TelemetryFlusher{
		telemetry: telemetry,
		interval:  interval,
		logger:    log,
	}
}

// Start begins the periodic flush loop. Blocks until ctx is canceled;
// a final flush runs on shutdown so queued points are not lost.
func (f *TelemetryFlusher) Start(ctx context.Context) {
	f.logger.Info("Starting telemetry flusher worker")

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.telemetry.Flush(ctx); err != nil {
				f.logger.ErrorWithErr(err, "Telemetry flush failed")
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := f.telemetry.Flush(flushCtx); err != nil {
				f.logger.ErrorWithErr(err, "Final telemetry flush failed")
			}
			cancel()
			f.logger.Info("Telemetry flusher worker stopped")
			return
		}
	}
}
