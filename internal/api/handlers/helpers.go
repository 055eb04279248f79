package handlers

import (
	"net/http"

	"github.com/llmwatch/llmwatch/internal/api/dto"
	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/llmwatch/llmwatch/internal/domain/anomaly"
	"github.com/llmwatch/llmwatch/internal/domain/incident"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/pkg/utils"
)

// writeServiceError maps service errors onto the API error envelope,
// preserving AppError status codes.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	if appErr, ok := err.(*errors.AppError); ok {
		utils.WriteError(w, appErr)
		return
	}
	utils.WriteError(w, errors.Internal(fallback, err))
}

func toAnomalyDTO(a detector.Anomaly) dto.AnomalyDTO {
	return dto.AnomalyDTO{
		MetricName:       a.MetricName,
		Value:            a.Value,
		ZScore:           a.ZScore,
		DeviationPercent: a.DeviationPercent,
		Direction:        string(a.Direction),
		Severity:         string(a.Severity),
		BaselineMean:     a.BaselineMean,
		BaselineStd:      a.BaselineStd,
		DetectedAt:       a.Timestamp,
	}
}

func toAnomalyDTOs(anomalies []detector.Anomaly) []dto.AnomalyDTO {
	dtos := make([]dto.AnomalyDTO, len(anomalies))
	for i, a := range anomalies {
		dtos[i] = toAnomalyDTO(a)
	}
	return dtos
}

func toAnomalyRecordDTO(r *anomaly.Record) dto.AnomalyDTO {
	return dto.AnomalyDTO{
		ID:               r.ID,
		MetricName:       r.MetricName,
		Value:            r.Value,
		ZScore:           r.ZScore,
		DeviationPercent: r.DeviationPercent,
		Direction:        r.Direction,
		Severity:         r.Severity,
		BaselineMean:     r.BaselineMean,
		BaselineStd:      r.BaselineStd,
		PatternID:        r.PatternID,
		DetectedAt:       r.DetectedAt,
	}
}

func toPatternDTO(p *detector.Pattern) *dto.PatternDTO {
	if p == nil {
		return nil
	}
	return &dto.PatternDTO{
		Name:       p.Name,
		Severity:   string(p.Severity),
		Confidence: p.Confidence,
		Anomalies:  toAnomalyDTOs(p.Anomalies),
		Timestamp:  p.Timestamp,
	}
}

func toIncidentDTO(inc *incident.Incident) *dto.IncidentDTO {
	if inc == nil {
		return nil
	}
	return &dto.IncidentDTO{
		ID:           inc.ID,
		Title:        inc.Title,
		Description:  inc.Description,
		PatternID:    inc.PatternID,
		Severity:     inc.Severity,
		Status:       inc.Status,
		MetricNames:  inc.MetricNames,
		AnomalyCount: inc.AnomalyCount,
		RootCause:    inc.RootCause,
		CreatedAt:    inc.CreatedAt,
		UpdatedAt:    inc.UpdatedAt,
		ResolvedAt:   inc.ResolvedAt,
	}
}
