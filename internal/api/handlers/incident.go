package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/llmwatch/llmwatch/internal/api/dto"
	"github.com/llmwatch/llmwatch/internal/domain/incident"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/utils"
)

// IncidentHandler handles incident lifecycle requests
type IncidentHandler struct {
	service incident.Service
	logger  *logger.Logger
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(service incident.Service, log *logger.Logger) *IncidentHandler {
	return &IncidentHandler{
		service: service,
		logger:  log,
	}
}

// List returns incidents with pagination
// @Summary List incidents
// @Description Get a paginated list of incidents, most recent first
// @Tags Incidents
// @Produce json
// @Param status query string false "Filter by status (open, acknowledged, resolved)"
// @Param severity query string false "Filter by severity (SEV-1, SEV-2, SEV-3)"
// @Param pattern_id query string false "Filter by pattern ID"
// @Param page query int false "Page number (default: 1)"
// @Param page_size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} utils.PaginatedResponse{data=[]dto.IncidentDTO} "List of incidents"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /incidents [get]
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePaginationParams(r)

	filter := incident.Filter{
		Status:    r.URL.Query().Get("status"),
		Severity:  r.URL.Query().Get("severity"),
		PatternID: r.URL.Query().Get("pattern_id"),
	}

	incidents, total, err := h.service.List(r.Context(), filter, params.PageSize, params.Offset)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list incidents")
		utils.WriteError(w, errors.Internal("Failed to list incidents", err))
		return
	}

	dtos := make([]dto.IncidentDTO, len(incidents))
	for i, inc := range incidents {
		dtos[i] = *toIncidentDTO(inc)
	}

	utils.WriteJSON(w, http.StatusOK, utils.NewPaginatedResponse(dtos, params.Page, params.PageSize, total))
}

// Get returns a single incident by ID
// @Summary Get incident
// @Description Get a single incident by its ID
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.IncidentDTO} "Incident"
// @Failure 404 {object} utils.ErrorResponse "Incident not found"
// @Security ApiKeyAuth
// @Router /incidents/{id} [get]
func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inc, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to get incident")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, toIncidentDTO(inc))
}

// Acknowledge marks an open incident as acknowledged
// @Summary Acknowledge incident
// @Description Mark an open incident as acknowledged
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.IncidentDTO} "Acknowledged incident"
// @Failure 400 {object} utils.ErrorResponse "Incident is not open"
// @Failure 404 {object} utils.ErrorResponse "Incident not found"
// @Security ApiKeyAuth
// @Router /incidents/{id}/acknowledge [post]
func (h *IncidentHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inc, err := h.service.Acknowledge(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to acknowledge incident")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Incident acknowledged", toIncidentDTO(inc))
}

// Resolve marks an incident as resolved
// @Summary Resolve incident
// @Description Mark an incident as resolved
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.IncidentDTO} "Resolved incident"
// @Failure 400 {object} utils.ErrorResponse "Incident already resolved"
// @Failure 404 {object} utils.ErrorResponse "Incident not found"
// @Security ApiKeyAuth
// @Router /incidents/{id}/resolve [post]
func (h *IncidentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inc, err := h.service.Resolve(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve incident")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Incident resolved", toIncidentDTO(inc))
}
