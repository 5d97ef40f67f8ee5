package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vakwerk_backend/internal/escalation/repository"
	"vakwerk_backend/internal/escalation/service"
	"vakwerk_backend/internal/escalation/transport"
	"vakwerk_backend/internal/http/response"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/httpkit"
	"vakwerk_backend/platform/validator"
)

// Handler exposes escalation checks and the admin review queue over HTTP.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new escalation handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Check scans text for a job against the keyword table.
func (h *Handler) Check(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	var req transport.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.DomainError(c, apperr.Validation(err.Error()))
		return
	}

	result, err := h.svc.Check(c.Request.Context(), jobID, req.Text)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// ListByJob returns a job's escalations.
func (h *Handler) ListByJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	escalations, err := h.svc.ListByJob(c.Request.Context(), jobID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, toListResponse(escalations))
}

// ListPending returns the admin review queue.
func (h *Handler) ListPending(c *gin.Context) {
	escalations, err := h.svc.ListPending(c.Request.Context())
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, toListResponse(escalations))
}

// Approve resolves an escalation in favor of the raise. Admin only.
func (h *Handler) Approve(c *gin.Context) {
	escalationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid escalation id"))
		return
	}

	adminID, ok := httpkit.ActorID(c)
	if !ok {
		response.DomainError(c, apperr.Unauthorized("missing actor identity"))
		return
	}

	resolved, err := h.svc.Approve(c.Request.Context(), escalationID, adminID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, toResponse(resolved))
}

// Reject resolves an escalation without raising the job. Admin only.
func (h *Handler) Reject(c *gin.Context) {
	escalationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid escalation id"))
		return
	}

	adminID, ok := httpkit.ActorID(c)
	if !ok {
		response.DomainError(c, apperr.Unauthorized("missing actor identity"))
		return
	}

	var req transport.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.DomainError(c, apperr.Validation(err.Error()))
		return
	}

	resolved, err := h.svc.Reject(c.Request.Context(), escalationID, adminID, req.Reason)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, toResponse(resolved))
}

func toResponse(e repository.JobEscalation) transport.EscalationResponse {
	return transport.EscalationResponse{
		ID:             e.ID,
		JobID:          e.JobID,
		FromLevel:      e.FromLevel,
		ToLevel:        e.ToLevel,
		TriggerKeyword: e.TriggerKeyword,
		Keywords:       e.Keywords,
		Status:         e.Status,
		ResolvedBy:     e.ResolvedBy,
		ResolveReason:  e.ResolveReason,
		ResolvedAt:     e.ResolvedAt,
		CreatedAt:      e.CreatedAt,
	}
}

func toListResponse(escalations []repository.JobEscalation) transport.EscalationListResponse {
	items := make([]transport.EscalationResponse, 0, len(escalations))
	for _, e := range escalations {
		items = append(items, toResponse(e))
	}
	return transport.EscalationListResponse{Items: items, Total: len(items)}
}
