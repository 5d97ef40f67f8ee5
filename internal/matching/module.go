// Package matching provides the matching bounded context: the ranked
// provider search pipeline and the job assignment lifecycle.
package matching

import (
	"vakwerk_backend/internal/events"
	apphttp "vakwerk_backend/internal/http"
	"vakwerk_backend/internal/matching/handler"
	"vakwerk_backend/internal/matching/repository"
	"vakwerk_backend/internal/matching/service"
	providersrepo "vakwerk_backend/internal/providers/repository"
	"vakwerk_backend/platform/logger"
	"vakwerk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the matching bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Store
}

// NewModule creates and initializes the matching module with all its dependencies.
func NewModule(pool *pgxpool.Pool, jobs service.JobStore, tasks service.TaskReader, providers providersrepo.ProviderStore, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(jobs, tasks, providers, repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "matching"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the assignment store for direct access by sibling modules.
func (m *Module) Repository() repository.Store {
	return m.repo
}

// RegisterRoutes mounts matching routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobsGroup := ctx.Protected.Group("/jobs")
	jobsGroup.POST("/:id/matches", m.handler.FindMatches)
	jobsGroup.GET("/:id/assignment", m.handler.ActiveAssignment)

	assignmentsGroup := ctx.Protected.Group("/assignments")
	assignmentsGroup.POST("/:id/respond", m.handler.Respond)

	adminGroup := ctx.Admin.Group("/jobs")
	adminGroup.POST("/:id/assignments", m.handler.Assign)
	adminGroup.POST("/:id/reassign", m.handler.Reassign)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
