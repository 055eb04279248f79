package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/llmwatch/llmwatch/internal/api/dto"
	"github.com/llmwatch/llmwatch/internal/domain/baseline"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/utils"
	"github.com/llmwatch/llmwatch/internal/pkg/validator"
	"github.com/llmwatch/llmwatch/internal/services"
)

// maxImportBytes caps baseline import payloads at 32 MiB.
const maxImportBytes = 32 << 20

// BaselineHandler handles baseline snapshot requests
type BaselineHandler struct {
	service   *services.BaselineService
	logger    *logger.Logger
	validator *validator.Validator
}

// NewBaselineHandler creates a new baseline handler
func NewBaselineHandler(service *services.BaselineService, log *logger.Logger, val *validator.Validator) *BaselineHandler {
	return &BaselineHandler{
		service:   service,
		logger:    log,
		validator: val,
	}
}

// Snapshot captures the current detection state
// @Summary Capture baseline snapshot
// @Description Persist the detection engine's current window state so baselines survive restarts
// @Tags Baselines
// @Produce json
// @Success 201 {object} utils.SuccessResponse{data=dto.SnapshotDTO} "Captured snapshot"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /baseline/snapshot [post]
func (h *BaselineHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.SnapshotNow(r.Context())
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to capture baseline snapshot")
		utils.WriteError(w, errors.Internal("Failed to capture baseline snapshot", err))
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, toSnapshotDTO(snap))
}

// Generate seeds the detection engine with synthetic baselines
// @Summary Generate synthetic baselines
// @Description Generate realistic synthetic history for every known metric, load it into the detection engine and persist the result
// @Tags Baselines
// @Accept json
// @Produce json
// @Param request body dto.GenerateBaselineRequest false "Generation parameters"
// @Success 201 {object} utils.SuccessResponse{data=dto.SnapshotDTO} "Snapshot of the generated baselines"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security ApiKeyAuth
// @Router /baseline/generate [post]
func (h *BaselineHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateBaselineRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteError(w, errors.BadRequest("Invalid request body"))
			return
		}
		if errs := h.validator.Validate(req); len(errs) > 0 {
			utils.WriteError(w, errors.ValidationError("Validation failed", errs))
			return
		}
	}

	snap, err := h.service.Generate(r.Context(), req.Points, req.AnomalyRate, req.Seed)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to generate baselines")
		writeServiceError(w, err, "Failed to generate baselines")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusCreated, "Baselines generated", toSnapshotDTO(snap))
}

// List returns stored snapshots, newest first
// @Summary List baseline snapshots
// @Description Get stored baseline snapshots, newest first
// @Tags Baselines
// @Produce json
// @Param limit query int false "Maximum number of snapshots (default: 20, max: 100)"
// @Success 200 {object} utils.SuccessResponse{data=[]dto.SnapshotDTO} "Snapshots"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /baseline/snapshots [get]
func (h *BaselineHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	snaps, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list baseline snapshots")
		utils.WriteError(w, errors.Internal("Failed to list baseline snapshots", err))
		return
	}

	dtos := make([]dto.SnapshotDTO, len(snaps))
	for i, snap := range snaps {
		dtos[i] = toSnapshotDTO(snap)
	}

	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// Export streams the live detection state as JSON
// @Summary Export baselines
// @Description Download the detection engine's current window state as a JSON document
// @Tags Baselines
// @Produce json
// @Success 200 {object} object "Baseline export"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /baseline/export [get]
func (h *BaselineHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportJSON()
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to export baselines")
		utils.WriteError(w, errors.Internal("Failed to export baselines", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="llmwatch-baselines.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import loads a previously exported baseline document
// @Summary Import baselines
// @Description Load a previously exported baseline document into the detection engine
// @Tags Baselines
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse "Import result"
// @Failure 400 {object} utils.ErrorResponse "Invalid baseline document"
// @Security ApiKeyAuth
// @Router /baseline/import [post]
func (h *BaselineHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Failed to read request body"))
		return
	}

	if err := h.service.ImportJSON(data); err != nil {
		writeServiceError(w, err, "Failed to import baselines")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Baselines imported", nil)
}

func toSnapshotDTO(snap *baseline.Snapshot) dto.SnapshotDTO {
	return dto.SnapshotDTO{
		ID:         snap.ID,
		CapturedAt: snap.CapturedAt,
		Metrics:    snap.Metrics,
		Datapoints: snap.Datapoints,
		CreatedAt:  snap.CreatedAt,
	}
}
