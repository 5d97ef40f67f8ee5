// Package providers provides the provider bounded context: profiles, the
// reputation scoring engine, and the durable penalty history.
package providers

import (
	"vakwerk_backend/internal/events"
	apphttp "vakwerk_backend/internal/http"
	"vakwerk_backend/internal/providers/handler"
	"vakwerk_backend/internal/providers/repository"
	"vakwerk_backend/internal/providers/scoring"
	"vakwerk_backend/platform/logger"
	"vakwerk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the providers bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	scoring   *scoring.Service
	providers *repository.Repo
	penalties *repository.PenaltyRepo
}

// NewModule creates and initializes the providers module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	providerRepo := repository.New(pool)
	penaltyRepo := repository.NewPenaltyRepo(pool)
	sc := scoring.New(providerRepo, penaltyRepo, bus, log)
	h := handler.New(sc, providerRepo, val)

	return &Module{
		handler:   h,
		scoring:   sc,
		providers: providerRepo,
		penalties: penaltyRepo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "providers"
}

// Scoring returns the scoring engine for external use.
func (m *Module) Scoring() *scoring.Service {
	return m.scoring
}

// Repository returns the provider repository for direct access by sibling modules.
func (m *Module) Repository() *repository.Repo {
	return m.providers
}

// RegisterRoutes mounts provider routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	providersGroup := ctx.Protected.Group("/providers")
	providersGroup.GET("/:id/score", m.handler.Score)
	providersGroup.GET("/:id/penalties", m.handler.Penalties)

	adminGroup := ctx.Admin.Group("/providers")
	adminGroup.POST("/:id/penalties", m.handler.ApplyPenalty)
	adminGroup.POST("/:id/score-adjustments", m.handler.AdjustScore)
	adminGroup.POST("/:id/normalize", m.handler.Normalize)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
