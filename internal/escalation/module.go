package escalation

import (
	"vakwerk_backend/internal/escalation/handler"
	"vakwerk_backend/internal/escalation/repository"
	"vakwerk_backend/internal/escalation/service"
	"vakwerk_backend/internal/events"
	apphttp "vakwerk_backend/internal/http"
	"vakwerk_backend/platform/logger"
	"vakwerk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the escalation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Store
}

// NewModule creates and initializes the escalation module with all its dependencies.
func NewModule(pool *pgxpool.Pool, jobs service.JobStore, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, jobs, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "escalation"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts escalation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobsGroup := ctx.Protected.Group("/jobs")
	jobsGroup.POST("/:id/escalations/check", m.handler.Check)
	jobsGroup.GET("/:id/escalations", m.handler.ListByJob)

	adminGroup := ctx.Admin.Group("/escalations")
	adminGroup.GET("", m.handler.ListPending)
	adminGroup.POST("/:id/approve", m.handler.Approve)
	adminGroup.POST("/:id/reject", m.handler.Reject)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
