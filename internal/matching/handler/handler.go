package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vakwerk_backend/internal/http/response"
	"vakwerk_backend/internal/matching/repository"
	"vakwerk_backend/internal/matching/service"
	"vakwerk_backend/internal/matching/transport"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/httpkit"
	"vakwerk_backend/platform/validator"
)

// Handler exposes the matching pipeline and assignment lifecycle over HTTP.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new matching handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// FindMatches runs the ranking pipeline for a job.
func (h *Handler) FindMatches(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	var req transport.FindMatchesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.DomainError(c, apperr.BadRequest("invalid request body"))
			return
		}
		if err := h.val.Struct(req); err != nil {
			response.DomainError(c, apperr.Validation(err.Error()))
			return
		}
	}

	opts := service.Options{MaxResults: req.MaxResults, RadiusKM: req.RadiusKM}
	if req.Weights != nil {
		opts.Weights = &service.Weights{
			InternalScore: req.Weights.InternalScore,
			Distance:      req.Weights.Distance,
			ResponseTime:  req.Weights.ResponseTime,
		}
	}

	result, err := h.svc.FindMatches(c.Request.Context(), jobID, opts)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// Assign offers a job to a provider. Admin only.
func (h *Handler) Assign(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.DomainError(c, apperr.Validation(err.Error()))
		return
	}

	assignment, err := h.svc.Assign(c.Request.Context(), jobID, req.ProviderID, req.MatchScore)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.Created(c, toAssignmentResponse(assignment))
}

// Reassign replaces the job's active assignment. Admin only.
func (h *Handler) Reassign(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	var req transport.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.DomainError(c, apperr.Validation(err.Error()))
		return
	}

	assignment, err := h.svc.Reassign(c.Request.Context(), jobID, req.ProviderID, req.Reason)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, toAssignmentResponse(assignment))
}

// Respond records the authenticated provider's answer to an offer.
func (h *Handler) Respond(c *gin.Context) {
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid assignment id"))
		return
	}

	providerID, ok := httpkit.ActorID(c)
	if !ok {
		response.DomainError(c, apperr.Unauthorized("missing actor identity"))
		return
	}

	var req transport.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}

	assignment, err := h.svc.Respond(c.Request.Context(), assignmentID, providerID, req.Accept)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, toAssignmentResponse(assignment))
}

// ActiveAssignment returns the job's current active assignment.
func (h *Handler) ActiveAssignment(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	assignment, err := h.svc.ActiveAssignment(c.Request.Context(), jobID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, toAssignmentResponse(assignment))
}

func toAssignmentResponse(a repository.Assignment) transport.AssignmentResponse {
	return transport.AssignmentResponse{
		ID:           a.ID,
		JobID:        a.JobID,
		ProviderID:   a.ProviderID,
		Status:       a.Status,
		MatchScore:   a.MatchScore,
		RespondBy:    a.RespondBy,
		ArriveBy:     a.ArriveBy,
		OfferedAt:    a.OfferedAt,
		RespondedAt:  a.RespondedAt,
		CancelledAt:  a.CancelledAt,
		CancelReason: a.CancelReason,
	}
}
