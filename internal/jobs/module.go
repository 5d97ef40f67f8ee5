// Package jobs provides the job lifecycle bounded context: creation with an
// immutable SLA snapshot and state-machine-guarded status transitions.
package jobs

import (
	"vakwerk_backend/internal/events"
	apphttp "vakwerk_backend/internal/http"
	"vakwerk_backend/internal/jobs/handler"
	"vakwerk_backend/internal/jobs/repository"
	"vakwerk_backend/internal/jobs/service"
	"vakwerk_backend/platform/logger"
	"vakwerk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the jobs bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the jobs module with all its dependencies.
func NewModule(pool *pgxpool.Pool, tasks service.TaskReader, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tasks, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "jobs"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access by sibling modules.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts job routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobsGroup := ctx.Protected.Group("/jobs")
	jobsGroup.POST("", m.handler.Create)
	jobsGroup.GET("", m.handler.ListMine)
	jobsGroup.GET("/:id", m.handler.Get)
	jobsGroup.POST("/:id/submit", m.handler.Submit)
	jobsGroup.POST("/:id/transition", m.handler.Transition)
	jobsGroup.GET("/:id/valid-targets", m.handler.ValidTargets)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
