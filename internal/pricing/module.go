// Package pricing provides the pricing bounded context: dynamic estimates,
// price breakdowns, and high-tier price negotiation.
package pricing

import (
	"vakwerk_backend/internal/events"
	apphttp "vakwerk_backend/internal/http"
	"vakwerk_backend/internal/pricing/handler"
	"vakwerk_backend/internal/pricing/repository"
	"vakwerk_backend/internal/pricing/service"
	"vakwerk_backend/platform/logger"
	"vakwerk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pricing bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the pricing module with all its dependencies.
func NewModule(pool *pgxpool.Pool, jobs service.JobStore, weather service.WeatherFlag, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	proposals := repository.NewProposalRepo(pool)
	history := repository.NewEventRepo(pool)
	svc := service.New(proposals, history, jobs, weather, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pricing"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts pricing routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobsGroup := ctx.Protected.Group("/jobs")
	jobsGroup.GET("/:id/price/estimate", m.handler.Estimate)
	jobsGroup.GET("/:id/price/breakdown", m.handler.Breakdown)
	jobsGroup.GET("/:id/proposals", m.handler.ListProposals)
	jobsGroup.POST("/:id/proposals", m.handler.CreateProposal)
	jobsGroup.POST("/:id/price/adjust", m.handler.Adjust)

	proposalsGroup := ctx.Protected.Group("/proposals")
	proposalsGroup.POST("/:id/respond", m.handler.Respond)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
