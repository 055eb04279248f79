package handlers

import (
	"net/http"

	"github.com/llmwatch/llmwatch/internal/api/dto"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/utils"
	"github.com/llmwatch/llmwatch/internal/services"
)

// SummaryHandler handles combined metrics summary requests
type SummaryHandler struct {
	detection *services.DetectionService
	chat      *services.ChatService
	logger    *logger.Logger
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(detection *services.DetectionService, chat *services.ChatService, log *logger.Logger) *SummaryHandler {
	return &SummaryHandler{
		detection: detection,
		chat:      chat,
		logger:    log,
	}
}

// Summary returns the combined detection and session view
// @Summary Metrics summary
// @Description Get the detection engine state, the collector's session totals and interaction aggregates in one payload
// @Tags Metrics
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.SummaryResponse} "Combined summary"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /metrics/summary [get]
func (h *SummaryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	detSummary := h.detection.Summary()
	session := h.chat.SessionSummary()

	stats, err := h.chat.InteractionStats(r.Context())
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to aggregate interactions")
		utils.WriteError(w, errors.Internal("Failed to aggregate interactions", err))
		return
	}

	perMetric := make(map[string]dto.MetricStatsDTO, len(detSummary.PerMetric))
	for name, stats := range detSummary.PerMetric {
		perMetric[name] = dto.MetricStatsDTO{
			Mean:  stats.Mean,
			Std:   stats.Std,
			EWMA:  stats.EWMA,
			Count: stats.Count,
			Ready: stats.Ready,
		}
	}

	resp := dto.SummaryResponse{
		Detector: dto.DetectorSummaryDTO{
			TotalDatapoints: detSummary.TotalDatapoints,
			TotalAnomalies:  detSummary.TotalAnomalies,
			TotalPatterns:   detSummary.TotalPatterns,
			MetricsTracked:  detSummary.MetricsTracked,
			WindowsReady:    detSummary.WindowsReady,
			WindowSize:      detSummary.WindowSize,
			ZThreshold:      detSummary.ZThreshold,
			PerMetric:       perMetric,
		},
		Session: dto.SessionSummaryDTO{
			TotalRequests:     session.TotalRequests,
			TotalTokens:       session.TotalTokens,
			TotalCost:         session.TotalCost,
			TotalRefusals:     session.TotalRefusals,
			TotalTruncations:  session.TotalTruncations,
			ElapsedSeconds:    session.ElapsedSeconds,
			RequestsPerMinute: session.RequestsPerMinute,
			AvgTokensPerReq:   session.AvgTokensPerReq,
			AvgCostPerReq:     session.AvgCostPerReq,
			AvgLatencyMs:      session.AvgLatencyMs,
		},
		Interactions: dto.InteractionStatsDTO{
			TotalRequests: stats.TotalRequests,
			TotalCost:     stats.TotalCost,
			AvgLatencyMs:  stats.AvgLatencyMs,
			RefusalRate:   stats.RefusalRate,
		},
		Provider:        h.chat.Provider(),
		RecentAnomalies: toAnomalyDTOs(h.detection.Recent(10)),
	}
	if resp.RecentAnomalies == nil {
		resp.RecentAnomalies = []dto.AnomalyDTO{}
	}

	utils.WriteSuccess(w, http.StatusOK, resp)
}
