package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vakwerk_backend/internal/http/response"
	"vakwerk_backend/internal/pricing/repository"
	"vakwerk_backend/internal/pricing/service"
	"vakwerk_backend/internal/pricing/transport"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/httpkit"
	"vakwerk_backend/platform/validator"
)

// Handler exposes price estimates, breakdowns, and negotiation over HTTP.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new pricing handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Estimate prices a job from its base range and current conditions.
func (h *Handler) Estimate(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	estimate, err := h.svc.Estimate(c.Request.Context(), jobID, c.Query("country"))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, estimate)
}

// Breakdown reconstructs the job's price picture.
func (h *Handler) Breakdown(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	breakdown, err := h.svc.Breakdown(c.Request.Context(), jobID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, breakdown)
}

// CreateProposal opens a negotiation step for the authenticated actor.
func (h *Handler) CreateProposal(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	actorID, ok := httpkit.ActorID(c)
	if !ok {
		response.DomainError(c, apperr.Unauthorized("missing actor identity"))
		return
	}

	var req transport.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.DomainError(c, apperr.Validation(err.Error()))
		return
	}

	proposal, err := h.svc.CreateProposal(c.Request.Context(), jobID, actorID, httpkit.ActorType(c), req.PriceCents, req.Description)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.Created(c, toProposalResponse(proposal))
}

// Respond answers a pending proposal.
func (h *Handler) Respond(c *gin.Context) {
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid proposal id"))
		return
	}

	actorID, ok := httpkit.ActorID(c)
	if !ok {
		response.DomainError(c, apperr.Unauthorized("missing actor identity"))
		return
	}

	var req transport.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}

	proposal, err := h.svc.Respond(c.Request.Context(), proposalID, actorID, req.Accept)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, toProposalResponse(proposal))
}

// Adjust reprices a job after an on-site scope change.
func (h *Handler) Adjust(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	actorID, ok := httpkit.ActorID(c)
	if !ok {
		response.DomainError(c, apperr.Unauthorized("missing actor identity"))
		return
	}

	var req transport.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.DomainError(c, apperr.Validation(err.Error()))
		return
	}

	proposal, err := h.svc.Adjust(c.Request.Context(), jobID, actorID, req.PriceCents, req.Reason)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.Created(c, toProposalResponse(proposal))
}

// ListProposals returns a job's proposals.
func (h *Handler) ListProposals(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	proposals, err := h.svc.ListProposals(c.Request.Context(), jobID)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	items := make([]transport.ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		items = append(items, toProposalResponse(p))
	}
	response.OK(c, transport.ProposalListResponse{Items: items, Total: len(items)})
}

func toProposalResponse(p repository.PriceProposal) transport.ProposalResponse {
	return transport.ProposalResponse{
		ID:          p.ID,
		JobID:       p.JobID,
		ProposerID:  p.ProposerID,
		Role:        p.Role,
		PriceCents:  p.PriceCents,
		Description: p.Description,
		Status:      p.Status,
		RespondedBy: p.RespondedBy,
		CreatedAt:   p.CreatedAt,
		RespondedAt: p.RespondedAt,
	}
}
