package services

import (
	"context"
	"time"

	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/domain/anomaly"
	"github.com/llmwatch/llmwatch/internal/domain/incident"
	"github.com/llmwatch/llmwatch/internal/events"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/metrics"
)

// DetectionResult is what one observed batch produced end to end:
// detector verdicts plus the incident, if the pattern opened one.
type DetectionResult struct {
	Anomalies []detector.Anomaly `json:"anomalies"`
	Pattern   *detector.Pattern  `json:"pattern,omitempty"`
	Incident  *incident.Incident `json:"incident,omitempty"`
}

// DetectionService feeds observations into the detection registry and
// carries the consequences: anomaly persistence, incident creation and
// event fan-out. The registry itself stays free of I/O.
type DetectionService struct {
	registry  *detector.Registry
	anomalies anomaly.Repository
	incidents incident.Service
	telemetry *TelemetryService
	hub       *events.Hub
	logger    *logger.Logger
}

// NewDetectionService creates a new detection service
func NewDetectionService(
	registry *detector.Registry,
	anomalies anomaly.Repository,
	incidents incident.Service,
	telemetry *TelemetryService,
	hub *events.Hub,
	log *logger.Logger,
) *DetectionService {
	return &DetectionService{
		registry:  registry,
		anomalies: anomalies,
		incidents: incidents,
		telemetry: telemetry,
		hub:       hub,
		logger:    log,
	}
}

// ObserveBatch folds one request's metrics into the registry, persists
// whatever it raised and opens an incident when a pattern warrants one.
// A non-finite input value skips that metric but the rest of the batch
// still lands; the partial result is returned alongside the error.
func (s *DetectionService) ObserveBatch(ctx context.Context, values map[string]float64, ts time.Time) (*DetectionResult, error) {
	batch, obsErr := s.registry.ObserveBatch(values, ts)

	for range values {
		metrics.RecordDatapoint()
	}

	result := &DetectionResult{
		Anomalies: batch.Anomalies,
		Pattern:   batch.Pattern,
	}

	patternID := ""
	if batch.Pattern != nil {
		patternID = batch.Pattern.Name
		metrics.RecordPattern(patternID)
		s.hub.Publish(events.TypePattern, batch.Pattern)
	}

	for _, a := range batch.Anomalies {
		metrics.RecordAnomaly(string(a.Severity), string(a.Direction))
		s.hub.Publish(events.TypeAnomaly, a)
		s.telemetry.SendAnomalyEvent(ctx, a)

		record := toRecord(a, patternID)
		if _, err := s.anomalies.Create(ctx, record); err != nil {
			s.logger.ErrorWithErr(err, "Failed to persist anomaly")
		}
	}

	if batch.Pattern != nil {
		inc, err := s.incidents.CreateFromPattern(ctx, batch.Pattern)
		if err != nil {
			s.logger.ErrorWithErr(err, "Failed to create incident from pattern")
		} else {
			result.Incident = inc
		}
	}

	s.telemetry.EnqueueGauges(values, ts)
	s.updateGauges()

	return result, obsErr
}

// Observe folds a single metric observation in, persisting any anomaly.
func (s *DetectionService) Observe(ctx context.Context, metric string, value float64, ts time.Time) (*detector.Anomaly, error) {
	a, err := s.registry.Observe(metric, value, ts)
	if err != nil {
		return nil, err
	}
	metrics.RecordDatapoint()

	if a != nil {
		metrics.RecordAnomaly(string(a.Severity), string(a.Direction))
		s.hub.Publish(events.TypeAnomaly, *a)
		if _, persistErr := s.anomalies.Create(ctx, toRecord(*a, "")); persistErr != nil {
			s.logger.ErrorWithErr(persistErr, "Failed to persist anomaly")
		}
	}
	s.updateGauges()
	return a, nil
}

// Summary returns the registry-wide health view.
func (s *DetectionService) Summary() detector.Summary {
	return s.registry.Summary()
}

// Recent returns the newest in-memory anomalies, up to n.
func (s *DetectionService) Recent(n int) []detector.Anomaly {
	return s.registry.Recent(n)
}

// ListAnomalies retrieves persisted anomalies with filters and pagination.
func (s *DetectionService) ListAnomalies(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Record, int64, error) {
	return s.anomalies.List(ctx, filter, limit, offset)
}

// CountBySeverity aggregates persisted anomalies per severity level.
func (s *DetectionService) CountBySeverity(ctx context.Context) (map[string]int, error) {
	return s.anomalies.CountBySeverity(ctx)
}

func (s *DetectionService) updateGauges() {
	summary := s.registry.Summary()
	metrics.SetMetricsTracked(float64(summary.MetricsTracked))
	metrics.SetWindowsReady(float64(summary.WindowsReady))
}

func toRecord(a detector.Anomaly, patternID string) *anomaly.Record {
	return &anomaly.Record{
		MetricName:       a.MetricName,
		Value:            a.Value,
		ZScore:           a.ZScore,
		DeviationPercent: a.DeviationPercent,
		Direction:        string(a.Direction),
		Severity:         string(a.Severity),
		BaselineMean:     a.BaselineMean,
		BaselineStd:      a.BaselineStd,
		PatternID:        patternID,
		DetectedAt:       a.Timestamp,
	}
}
