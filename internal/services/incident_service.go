package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/domain/incident"
	"github.com/llmwatch/llmwatch/internal/events"
	"github.com/llmwatch/llmwatch/internal/integrations"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/metrics"
)

// IncidentService implements incident.Service
type IncidentService struct {
	repo      incident.Repository
	rootCause *RootCauseService
	registry  *detector.Registry
	slack     *integrations.SlackClient
	hub       *events.Hub
	cfg       config.IncidentConfig
	logger    *logger.Logger
}

// NewIncidentService creates a new incident service
func NewIncidentService(
	repo incident.Repository,
	rootCause *RootCauseService,
	registry *detector.Registry,
	slack *integrations.SlackClient,
	hub *events.Hub,
	cfg config.IncidentConfig,
	log *logger.Logger,
) incident.Service {
	return &IncidentService{
		repo:      repo,
		rootCause: rootCause,
		registry:  registry,
		slack:     slack,
		hub:       hub,
		cfg:       cfg,
		logger:    log,
	}
}

// CreateFromPattern opens an incident for a correlated pattern. Patterns
// below the severity floor are ignored, and a pattern that already has an
// unresolved incident inside the cooldown window is absorbed into it
// instead of opening a duplicate.
func (s *IncidentService) CreateFromPattern(ctx context.Context, pattern *detector.Pattern) (*incident.Incident, error) {
	if pattern == nil {
		return nil, nil
	}
	if !meetsFloor(pattern.Severity, s.cfg.SeverityFloor) {
		s.logger.WithFields(map[string]interface{}{
			"pattern":  pattern.Name,
			"severity": pattern.Severity,
			"floor":    s.cfg.SeverityFloor,
		}).Debug("Pattern below incident severity floor")
		return nil, nil
	}

	since := time.Now().Add(-s.cfg.Cooldown)
	existing, err := s.repo.FindOpenByPattern(ctx, pattern.Name, since)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.AnomalyCount += len(pattern.Anomalies)
		if detector.Severity(existing.Severity).Max(pattern.Severity) != detector.Severity(existing.Severity) {
			existing.Severity = string(pattern.Severity)
		}
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.WithFields(map[string]interface{}{
			"incident_id": existing.ID,
			"pattern":     pattern.Name,
			"anomalies":   existing.AnomalyCount,
		}).Info("Pattern absorbed into open incident")
		return existing, nil
	}

	analysis := s.rootCause.Analyze(ctx, pattern, s.recentMetricMeans())

	inc := &incident.Incident{
		ID:           uuid.New().String(),
		Title:        incidentTitle(pattern),
		Description:  incidentDescription(pattern, analysis),
		PatternID:    pattern.Name,
		Severity:     string(pattern.Severity),
		Status:       incident.StatusOpen,
		MetricNames:  memberMetrics(pattern),
		AnomalyCount: len(pattern.Anomalies),
		RootCause:    analysis.RootCause,
	}

	if err := s.repo.Create(ctx, inc); err != nil {
		return nil, err
	}

	metrics.RecordIncidentCreated(inc.Severity, inc.PatternID)
	s.logger.WithFields(map[string]interface{}{
		"incident_id": inc.ID,
		"pattern":     inc.PatternID,
		"severity":    inc.Severity,
		"anomalies":   inc.AnomalyCount,
	}).Info("Incident created")

	s.hub.Publish(events.TypeIncident, inc)
	s.notifySlack(ctx, inc, analysis)

	if count, err := s.repo.CountOpen(ctx); err == nil {
		metrics.SetOpenIncidents(float64(count))
	}

	return inc, nil
}

// GetByID retrieves an incident by ID
func (s *IncidentService) GetByID(ctx context.Context, id string) (*incident.Incident, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves incidents with filters and pagination
func (s *IncidentService) List(ctx context.Context, filter incident.Filter, limit, offset int) ([]*incident.Incident, int64, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// Acknowledge marks an open incident as acknowledged
func (s *IncidentService) Acknowledge(ctx context.Context, id string) (*incident.Incident, error) {
	inc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc.Status != incident.StatusOpen {
		return nil, errors.BadRequest(fmt.Sprintf("Cannot acknowledge incident in status %s", inc.Status))
	}

	inc.Status = incident.StatusAcknowledged
	if err := s.repo.Update(ctx, inc); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"incident_id": id,
	}).Info("Incident acknowledged")
	return inc, nil
}

// Resolve marks an incident as resolved
func (s *IncidentService) Resolve(ctx context.Context, id string) (*incident.Incident, error) {
	inc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc.Status == incident.StatusResolved {
		return nil, errors.BadRequest("Incident is already resolved")
	}

	now := time.Now()
	inc.Status = incident.StatusResolved
	inc.ResolvedAt = &now
	if err := s.repo.Update(ctx, inc); err != nil {
		return nil, err
	}

	if count, err := s.repo.CountOpen(ctx); err == nil {
		metrics.SetOpenIncidents(float64(count))
	}

	s.logger.WithFields(map[string]interface{}{
		"incident_id": id,
	}).Info("Incident resolved")
	return inc, nil
}

func (s *IncidentService) notifySlack(ctx context.Context, inc *incident.Incident, analysis *RootCauseAnalysis) {
	if s.slack == nil || !s.slack.Enabled() {
		return
	}

	message := integrations.SlackMessage{
		Text: fmt.Sprintf(":rotating_light: *%s*", inc.Title),
		Attachments: []integrations.SlackAttachment{
			{
				Color: slackColorFor(inc.Severity),
				Fields: []integrations.SlackField{
					{Title: "Severity", Value: inc.Severity, Short: true},
					{Title: "Pattern", Value: inc.PatternID, Short: true},
					{Title: "Metrics", Value: strings.Join(inc.MetricNames, ", "), Short: false},
					{Title: "Root Cause", Value: analysis.RootCause, Short: false},
					{Title: "Suggested Actions", Value: strings.Join(analysis.SuggestedActions, "\n"), Short: false},
				},
			},
		},
	}
	if err := s.slack.Send(ctx, message); err != nil {
		s.logger.WithError(err).Warn("Failed to send incident notification")
	}
}

// recentMetricMeans summarizes current baselines for the analysis prompt.
func (s *IncidentService) recentMetricMeans() map[string]float64 {
	if s.registry == nil {
		return nil
	}
	summary := s.registry.Summary()
	means := make(map[string]float64, len(summary.PerMetric))
	for name, stats := range summary.PerMetric {
		means[name] = stats.Mean
	}
	return means
}

func incidentTitle(pattern *detector.Pattern) string {
	return fmt.Sprintf("[%s] %s across %d metrics",
		pattern.Severity, strings.ReplaceAll(pattern.Name, "_", " "), len(pattern.Anomalies))
}

func incidentDescription(pattern *detector.Pattern, analysis *RootCauseAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Correlated pattern %q detected at %s with %s confidence.\n\n",
		pattern.Name, pattern.Timestamp.UTC().Format(time.RFC3339), pattern.Confidence)
	b.WriteString("Member anomalies:\n")
	for _, a := range pattern.Anomalies {
		fmt.Fprintf(&b, "- %s: value=%.4f z=%.2f deviation=%.1f%% direction=%s severity=%s\n",
			a.MetricName, a.Value, a.ZScore, a.DeviationPercent, a.Direction, a.Severity)
	}
	fmt.Fprintf(&b, "\nRoot cause (%s): %s\n", analysis.Source, analysis.RootCause)
	if analysis.Impact != "" {
		fmt.Fprintf(&b, "Impact: %s\n", analysis.Impact)
	}
	if len(analysis.SuggestedActions) > 0 {
		b.WriteString("Suggested actions:\n")
		for _, action := range analysis.SuggestedActions {
			fmt.Fprintf(&b, "- %s\n", action)
		}
	}
	return b.String()
}

func memberMetrics(pattern *detector.Pattern) []string {
	names := make([]string, 0, len(pattern.Anomalies))
	for _, a := range pattern.Anomalies {
		names = append(names, a.MetricName)
	}
	return names
}

// meetsFloor reports whether severity is at or above the configured
// minimum for incident creation.
func meetsFloor(severity detector.Severity, floor string) bool {
	return severity.Max(detector.Severity(floor)) == severity
}

func slackColorFor(severity string) string {
	switch detector.Severity(severity) {
	case detector.SeverityCritical:
		return "danger"
	case detector.SeverityHigh:
		return "warning"
	default:
		return "#439FE0"
	}
}
