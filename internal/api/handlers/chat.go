package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/llmwatch/llmwatch/internal/api/dto"
	"github.com/llmwatch/llmwatch/internal/domain/interaction"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/utils"
	"github.com/llmwatch/llmwatch/internal/pkg/validator"
	"github.com/llmwatch/llmwatch/internal/services"
)

// ChatHandler handles LLM gateway requests
type ChatHandler struct {
	service   *services.ChatService
	logger    *logger.Logger
	validator *validator.Validator
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service *services.ChatService, log *logger.Logger, val *validator.Validator) *ChatHandler {
	return &ChatHandler{
		service:   service,
		logger:    log,
		validator: val,
	}
}

// Chat proxies a prompt to the configured LLM provider
// @Summary Send a prompt through the gateway
// @Description Forward a prompt to the LLM provider and run the exchange through anomaly detection
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Prompt"
// @Success 200 {object} utils.SuccessResponse{data=dto.ChatResponse} "Gateway response with detection outcome"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 502 {object} utils.ErrorResponse "Provider error"
// @Security ApiKeyAuth
// @Router /chat [post]
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req dto.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	result, err := h.service.Chat(r.Context(), req.Prompt)
	if err != nil {
		h.logger.ErrorWithErr(err, "Chat request failed")
		writeServiceError(w, err, "Provider request failed")
		return
	}

	resp := dto.ChatResponse{
		InteractionID: result.InteractionID,
		Response:      result.Response,
		Model:         result.Model,
		LatencyMs:     result.LatencyMs,
		Metrics:       result.Metrics,
	}
	if result.Detection != nil {
		resp.Anomalies = toAnomalyDTOs(result.Detection.Anomalies)
		resp.Pattern = toPatternDTO(result.Detection.Pattern)
		resp.Incident = toIncidentDTO(result.Detection.Incident)
	}
	if resp.Anomalies == nil {
		resp.Anomalies = []dto.AnomalyDTO{}
	}

	utils.WriteSuccess(w, http.StatusOK, resp)
}

// Interactions returns logged gateway exchanges
// @Summary List interactions
// @Description Get a paginated list of logged LLM exchanges, most recent first
// @Tags Chat
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param page_size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} utils.PaginatedResponse{data=[]dto.InteractionDTO} "List of interactions"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /interactions [get]
func (h *ChatHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePaginationParams(r)

	items, total, err := h.service.Interactions(r.Context(), params.PageSize, params.Offset)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list interactions")
		utils.WriteError(w, errors.Internal("Failed to list interactions", err))
		return
	}

	dtos := make([]dto.InteractionDTO, len(items))
	for i, it := range items {
		dtos[i] = toInteractionDTO(it)
	}

	utils.WriteJSON(w, http.StatusOK, utils.NewPaginatedResponse(dtos, params.Page, params.PageSize, total))
}

func toInteractionDTO(it *interaction.Interaction) dto.InteractionDTO {
	return dto.InteractionDTO{
		ID:             it.ID,
		Provider:       it.Provider,
		Model:          it.Model,
		PromptLength:   it.PromptLength,
		ResponseLength: it.ResponseLength,
		PromptTokens:   it.PromptTokens,
		ResponseTokens: it.ResponseTokens,
		CostUSD:        it.CostUSD,
		LatencyMs:      it.LatencyMs,
		IsRefusal:      it.IsRefusal,
		IsTruncated:    it.IsTruncated,
		AnomalyCount:   it.AnomalyCount,
		CreatedAt:      it.CreatedAt,
	}
}
