package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vakwerk_backend/internal/catalog/service"
	"vakwerk_backend/internal/http/response"
	"vakwerk_backend/platform/apperr"
)

// Handler exposes the catalog over HTTP.
type Handler struct {
	svc *service.Service
}

// New creates a new catalog handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// ListActive returns the bookable catalog.
func (h *Handler) ListActive(c *gin.Context) {
	result, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// List returns the full catalog including inactive tasks.
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// GetByID returns a single task.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.DomainError(c, apperr.BadRequest("invalid task id"))
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// GetBySlug returns a single task by slug.
func (h *Handler) GetBySlug(c *gin.Context) {
	result, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}
