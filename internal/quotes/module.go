// Package quotes provides the quote request lifecycle module.
package quotes

import (
	"flyttbas_backend/internal/events"
	apphttp "flyttbas_backend/internal/http"
	"flyttbas_backend/internal/quotes/handler"
	"flyttbas_backend/internal/quotes/repository"
	"flyttbas_backend/internal/quotes/service"
	"flyttbas_backend/platform/db"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/metrics"
	"flyttbas_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the quotes bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the quotes module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	tx db.Transactor,
	eventBus events.Bus,
	cfg service.Config,
	transitions *metrics.TransitionMetrics,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tx, eventBus, cfg, transitions, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts quote routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public.Group("/quotes"))
	m.handler.RegisterCustomerRoutes(ctx.Customer.Group("/quotes"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/quotes"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
