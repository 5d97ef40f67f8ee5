// Package catalog provides the service task catalog bounded context.
// The catalog is a closed, read-only list consumed by matching, escalation,
// and pricing; it is never mutated by the job lifecycle.
package catalog

import (
	"vakwerk_backend/internal/catalog/handler"
	"vakwerk_backend/internal/catalog/repository"
	"vakwerk_backend/internal/catalog/service"
	apphttp "vakwerk_backend/internal/http"
	"vakwerk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the catalog module with all its dependencies.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access by sibling modules.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Public.GET("/tasks", m.handler.ListActive)
	ctx.Public.GET("/tasks/:id", m.handler.GetByID)
	ctx.Public.GET("/tasks/slug/:slug", m.handler.GetBySlug)

	ctx.Admin.GET("/tasks", m.handler.List)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
