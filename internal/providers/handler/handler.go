package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vakwerk_backend/internal/http/response"
	"vakwerk_backend/internal/providers/repository"
	"vakwerk_backend/internal/providers/scoring"
	"vakwerk_backend/internal/providers/transport"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/httpkit"
	"vakwerk_backend/platform/validator"
)

// Handler exposes provider score standing and the admin scoring operations
// over HTTP.
type Handler struct {
	scoring   *scoring.Service
	providers repository.ProviderStore
	val       *validator.Validator
}

// New creates a new providers handler.
func New(sc *scoring.Service, providers repository.ProviderStore, val *validator.Validator) *Handler {
	return &Handler{scoring: sc, providers: providers, val: val}
}

// Score returns the provider's current score standing with level bounds.
func (h *Handler) Score(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid provider id"))
		return
	}

	provider, err := h.providers.GetByID(c.Request.Context(), providerID)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	expelled, err := h.scoring.CheckExpulsion(c.Request.Context(), providerID)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	resp := transport.ScoreResponse{
		ProviderID:    provider.ID,
		CurrentLevel:  provider.CurrentLevel,
		InternalScore: provider.InternalScore,
		Status:        provider.Status,
		IsExpelled:    expelled,
	}
	if cfg, ok := scoring.ConfigForLevel(provider.CurrentLevel); ok {
		resp.LevelBase = cfg.Base
		resp.LevelMin = cfg.Min
		resp.LevelMax = cfg.Max
	}
	response.OK(c, resp)
}

// Penalties returns the provider's penalty history, newest first.
func (h *Handler) Penalties(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid provider id"))
		return
	}

	records, err := h.scoring.History(c.Request.Context(), providerID)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	items := make([]transport.PenaltyResponse, 0, len(records))
	for _, r := range records {
		items = append(items, transport.PenaltyResponse{
			ID:            r.ID,
			PenaltyType:   r.PenaltyType,
			Points:        r.Points,
			PreviousScore: r.PreviousScore,
			NewScore:      r.NewScore,
			JobID:         r.JobID,
			Reason:        r.Reason,
			AppliedAt:     r.AppliedAt,
		})
	}
	response.OK(c, transport.PenaltyListResponse{Items: items, Total: len(items)})
}

// ApplyPenalty applies a penalty to a provider. Admin only.
func (h *Handler) ApplyPenalty(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid provider id"))
		return
	}

	var req transport.ApplyPenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.DomainError(c, apperr.Validation(err.Error()))
		return
	}

	result, err := h.scoring.ApplyPenalty(c.Request.Context(), providerID, req.PenaltyType, req.JobID, req.Reason)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// AdjustScore applies an audited manual score adjustment. Admin only.
func (h *Handler) AdjustScore(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid provider id"))
		return
	}

	adminID, ok := httpkit.ActorID(c)
	if !ok {
		response.DomainError(c, apperr.Unauthorized("missing actor identity"))
		return
	}

	var req transport.AdjustScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.DomainError(c, apperr.Validation(err.Error()))
		return
	}

	result, err := h.scoring.AdjustManually(c.Request.Context(), providerID, req.Delta, adminID, req.Reason)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// Normalize runs one recovery step for a provider. Admin only; the weekly
// sweep normally drives this through the scheduler.
func (h *Handler) Normalize(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid provider id"))
		return
	}

	result, err := h.scoring.Normalize(c.Request.Context(), providerID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}
