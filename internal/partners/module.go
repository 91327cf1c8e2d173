// Package partners provides the partner registry and eligibility module.
package partners

import (
	"flyttbas_backend/internal/events"
	apphttp "flyttbas_backend/internal/http"
	"flyttbas_backend/internal/partners/handler"
	"flyttbas_backend/internal/partners/repository"
	"flyttbas_backend/internal/partners/service"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the partners bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the partners module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	quotes service.QuoteReader,
	distances service.DistanceCalculator,
	overrides service.OverrideValidator,
	eventBus events.Bus,
	cfg service.Config,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, quotes, distances, overrides, eventBus, cfg, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "partners"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts partner routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public.Group("/partners"))
	m.handler.RegisterPartnerRoutes(ctx.Partner)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/partners"))
	m.handler.RegisterAdminQuoteRoutes(ctx.Admin.Group("/quotes"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
