package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/llmwatch/llmwatch/internal/api/dto"
	"github.com/llmwatch/llmwatch/internal/domain/anomaly"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/utils"
	"github.com/llmwatch/llmwatch/internal/pkg/validator"
	"github.com/llmwatch/llmwatch/internal/services"
)

// AnomalyHandler handles anomaly detection requests
type AnomalyHandler struct {
	service   *services.DetectionService
	logger    *logger.Logger
	validator *validator.Validator
}

// NewAnomalyHandler creates a new anomaly handler
func NewAnomalyHandler(service *services.DetectionService, log *logger.Logger, val *validator.Validator) *AnomalyHandler {
	return &AnomalyHandler{
		service:   service,
		logger:    log,
		validator: val,
	}
}

// List returns persisted anomalies with pagination
// @Summary List anomalies
// @Description Get a paginated list of detected anomalies, most recent first
// @Tags Anomalies
// @Produce json
// @Param metric query string false "Filter by metric name"
// @Param severity query string false "Filter by severity (SEV-1, SEV-2, SEV-3)"
// @Param direction query string false "Filter by direction (high, low)"
// @Param pattern_id query string false "Filter by pattern ID"
// @Param since query string false "Only anomalies detected after this RFC3339 timestamp"
// @Param page query int false "Page number (default: 1)"
// @Param page_size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} utils.PaginatedResponse{data=[]dto.AnomalyDTO} "List of anomalies"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /anomalies [get]
func (h *AnomalyHandler) List(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePaginationParams(r)

	filter := anomaly.Filter{
		MetricName: r.URL.Query().Get("metric"),
		Severity:   r.URL.Query().Get("severity"),
		Direction:  r.URL.Query().Get("direction"),
		PatternID:  r.URL.Query().Get("pattern_id"),
	}
	if since := r.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			utils.WriteError(w, errors.BadRequest("Invalid since timestamp, expected RFC3339"))
			return
		}
		filter.Since = ts
	}

	records, total, err := h.service.ListAnomalies(r.Context(), filter, params.PageSize, params.Offset)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list anomalies")
		utils.WriteError(w, errors.Internal("Failed to list anomalies", err))
		return
	}

	dtos := make([]dto.AnomalyDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAnomalyRecordDTO(rec)
	}

	utils.WriteJSON(w, http.StatusOK, utils.NewPaginatedResponse(dtos, params.Page, params.PageSize, total))
}

// Recent returns the in-memory ring of recent anomalies
// @Summary Recent anomalies
// @Description Get the most recent anomalies held by the detection engine, without hitting storage
// @Tags Anomalies
// @Produce json
// @Param limit query int false "Maximum number of anomalies (default: 20, max: 100)"
// @Success 200 {object} utils.SuccessResponse{data=[]dto.AnomalyDTO} "Recent anomalies"
// @Security ApiKeyAuth
// @Router /anomalies/recent [get]
func (h *AnomalyHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	utils.WriteSuccess(w, http.StatusOK, toAnomalyDTOs(h.service.Recent(limit)))
}

// Observe feeds a raw metric batch into the detection engine
// @Summary Submit raw observations
// @Description Feed a batch of metric values into the detection engine and return any anomalies, pattern and incident it raised
// @Tags Anomalies
// @Accept json
// @Produce json
// @Param request body dto.ObserveRequest true "Metric values keyed by metric name"
// @Success 200 {object} utils.SuccessResponse "Detection outcome"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security ApiKeyAuth
// @Router /anomalies/observe [post]
func (h *AnomalyHandler) Observe(w http.ResponseWriter, r *http.Request) {
	var req dto.ObserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	result, err := h.service.ObserveBatch(r.Context(), req.Metrics, time.Now().UTC())
	if err != nil {
		utils.WriteError(w, errors.BadRequest(err.Error()))
		return
	}

	resp := struct {
		Anomalies []dto.AnomalyDTO `json:"anomalies"`
		Pattern   *dto.PatternDTO  `json:"pattern,omitempty"`
		Incident  *dto.IncidentDTO `json:"incident,omitempty"`
	}{
		Anomalies: toAnomalyDTOs(result.Anomalies),
		Pattern:   toPatternDTO(result.Pattern),
		Incident:  toIncidentDTO(result.Incident),
	}
	if resp.Anomalies == nil {
		resp.Anomalies = []dto.AnomalyDTO{}
	}

	utils.WriteSuccess(w, http.StatusOK, resp)
}
