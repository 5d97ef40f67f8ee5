package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vakwerk_backend/internal/http/response"
	"vakwerk_backend/internal/jobs/domain"
	"vakwerk_backend/internal/jobs/service"
	"vakwerk_backend/internal/jobs/transport"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/httpkit"
	"vakwerk_backend/platform/validator"
)

// Handler exposes job creation and lifecycle transitions over HTTP.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new jobs handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create creates a job in DRAFT for the authenticated customer.
func (h *Handler) Create(c *gin.Context) {
	actorID, ok := httpkit.ActorID(c)
	if !ok {
		response.DomainError(c, apperr.Unauthorized("missing actor identity"))
		return
	}

	var req transport.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		response.DomainError(c, apperr.Validation(err.Error()))
		return
	}

	result, err := h.svc.Create(c.Request.Context(), actorID, req)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.Created(c, result)
}

// Submit moves a draft job into matching.
func (h *Handler) Submit(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), jobID, actorType(c))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// Transition applies a lifecycle transition for the authenticated actor.
func (h *Handler) Transition(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.DomainError(c, apperr.BadRequest("invalid request body"))
		return
	}

	target, err := domain.ParseStatus(req.Target)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	result, err := h.svc.Transition(c.Request.Context(), jobID, target, actorType(c))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// ValidTargets lists the transitions the actor may drive.
func (h *Handler) ValidTargets(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	result, err := h.svc.ValidTargets(c.Request.Context(), jobID, actorType(c))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// Get retrieves a job.
func (h *Handler) Get(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid job id"))
		return
	}

	result, err := h.svc.Get(c.Request.Context(), jobID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// ListMine retrieves the authenticated customer's jobs.
func (h *Handler) ListMine(c *gin.Context) {
	actorID, ok := httpkit.ActorID(c)
	if !ok {
		response.DomainError(c, apperr.Unauthorized("missing actor identity"))
		return
	}

	result, err := h.svc.ListByCustomer(c.Request.Context(), actorID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

func actorType(c *gin.Context) domain.ActorType {
	return domain.ActorType(httpkit.ActorType(c))
}
