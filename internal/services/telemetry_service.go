package services

import (
	"context"
	"fmt"
	"time"

	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/integrations"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/metrics"
)

// TelemetryService forwards metric gauges and anomaly events to Datadog
// through a bounded in-memory queue. Enqueueing never blocks the request
// path; when the queue is full the oldest point is simply lost.
type TelemetryService struct {
	client *integrations.DatadogClient
	queue  chan integrations.DatadogSeries
	tags   []string
	logger *logger.Logger
}

// NewTelemetryService creates a telemetry service. With no API key
// configured the service accepts points and silently discards them on
// flush, so callers never need to branch on whether telemetry is on.
func NewTelemetryService(cfg config.TelemetryConfig, log *logger.Logger) *TelemetryService {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1000
	}
	return &TelemetryService{
		client: integrations.NewDatadogClient(cfg.DatadogAPIKey, cfg.DatadogSite),
		queue:  make(chan integrations.DatadogSeries, size),
		tags:   []string{"service:" + cfg.ServiceName},
		logger: log,
	}
}

// Enabled reports whether points will actually reach Datadog.
func (s *TelemetryService) Enabled() bool {
	return s.client.Enabled()
}

// QueueDepth returns the number of points waiting to be flushed.
func (s *TelemetryService) QueueDepth() int {
	return len(s.queue)
}

// EnqueueGauges queues one gauge point per metric, stamped with ts.
func (s *TelemetryService) EnqueueGauges(values map[string]float64, ts time.Time) {
	for name, value := range values {
		s.enqueue(integrations.GaugePoint(name, value, ts, s.tags))
	}
	metrics.SetTelemetryQueueDepth(float64(len(s.queue)))
}

func (s *TelemetryService) enqueue(point integrations.DatadogSeries) {
	select {
	case s.queue <- point:
	default:
		s.logger.Warn("Telemetry queue full, dropping point")
	}
}

// Flush drains the queue and submits everything in one batch.
func (s *TelemetryService) Flush(ctx context.Context) error {
	var batch []integrations.DatadogSeries
drain:
	for {
		select {
		case point := <-s.queue:
			batch = append(batch, point)
		default:
			break drain
		}
	}
	metrics.SetTelemetryQueueDepth(0)
	if len(batch) == 0 {
		return nil
	}

	if !s.client.Enabled() {
		return nil
	}

	if err := s.client.SubmitSeries(ctx, batch); err != nil {
		metrics.RecordTelemetrySubmission("error")
		s.logger.WithError(err).Warn("Failed to submit telemetry batch")
		return err
	}
	metrics.RecordTelemetrySubmission("ok")
	s.logger.WithFields(map[string]interface{}{
		"points": len(batch),
	}).Debug("Telemetry batch submitted")
	return nil
}

// SendAnomalyEvent pushes a Datadog event for a detected anomaly.
// Fire-and-forget: failures are logged, never propagated.
func (s *TelemetryService) SendAnomalyEvent(ctx context.Context, a detector.Anomaly) {
	if !s.client.Enabled() {
		return
	}

	event := integrations.DatadogEvent{
		Title: fmt.Sprintf("[%s] Anomaly on %s", a.Severity, a.MetricName),
		Text: fmt.Sprintf("%s = %.4f deviated %.1f%% %s of baseline (z=%.2f, mean=%.4f, std=%.4f)",
			a.MetricName, a.Value, a.DeviationPercent, a.Direction, a.ZScore, a.BaselineMean, a.BaselineStd),
		AlertType: alertTypeFor(a.Severity),
		Tags:      append([]string{"metric:" + a.MetricName, "severity:" + string(a.Severity)}, s.tags...),
	}
	if err := s.client.SubmitEvent(ctx, event); err != nil {
		metrics.RecordTelemetrySubmission("error")
		s.logger.WithError(err).Warn("Failed to submit anomaly event")
	}
}

func alertTypeFor(severity detector.Severity) string {
	switch severity {
	case detector.SeverityCritical:
		return "error"
	case detector.SeverityHigh:
		return "warning"
	default:
		return "info"
	}
}
