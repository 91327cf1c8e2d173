// Package offers provides the offer and job lifecycle module.
package offers

import (
	"fmt"

	"flyttbas_backend/internal/events"
	apphttp "flyttbas_backend/internal/http"
	"flyttbas_backend/internal/offers/domain"
	"flyttbas_backend/internal/offers/handler"
	"flyttbas_backend/internal/offers/repository"
	"flyttbas_backend/internal/offers/service"
	"flyttbas_backend/platform/db"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/metrics"
	"flyttbas_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the configuration the offers module reads at startup.
type Config interface {
	service.Config
	GetRUTCap() int64
	GetRUTShare() string
	GetJobTransitionMode() string
	GetJobTransitionPolicyFile() string
}

// Module is the offers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// Collaborators are the cross-module ports the offer lifecycle drives.
type Collaborators struct {
	Quotes   service.QuoteGateway
	Partners service.PartnerGateway
	Ledger   service.Ledger
}

// NewModule creates the offers module. The RUT rules and the job transition
// policy are resolved once at startup.
func NewModule(
	pool *pgxpool.Pool,
	tx db.Transactor,
	collab Collaborators,
	eventBus events.Bus,
	cfg Config,
	transitions *metrics.TransitionMetrics,
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	rut, err := domain.NewRUTRules(cfg.GetRUTCap(), cfg.GetRUTShare())
	if err != nil {
		return nil, fmt.Errorf("rut rules: %w", err)
	}
	policy, err := domain.NewTransitionPolicy(cfg.GetJobTransitionMode(), cfg.GetJobTransitionPolicyFile())
	if err != nil {
		return nil, fmt.Errorf("job transition policy: %w", err)
	}

	repo := repository.New(pool)
	svc := service.New(service.Deps{
		Repo:     repo,
		Tx:       tx,
		Quotes:   collab.Quotes,
		Partners: collab.Partners,
		Ledger:   collab.Ledger,
		Policy:   policy,
		RUT:      rut,
		Config:   cfg,
		Bus:      eventBus,
		Metrics:  transitions,
		Log:      log,
	})
	log.Info("offers module configured", "jobTransitionMode", cfg.GetJobTransitionMode(), "rutCap", rut.Cap)
	return &Module{handler: handler.New(svc, val), service: svc, repo: repo}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "offers"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes offer lookups other modules index on.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts offer routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterCustomerQuoteRoutes(ctx.Customer.Group("/quotes"))
	m.handler.RegisterCustomerRoutes(ctx.Customer.Group("/offers"))
	m.handler.RegisterPartnerRoutes(ctx.Partner.Group("/offers"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/offers"))
	m.handler.RegisterAdminQuoteRoutes(ctx.Admin.Group("/quotes"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
