// Package commission provides the commission policy, settings and fee ledger module.
package commission

import (
	"flyttbas_backend/internal/commission/handler"
	"flyttbas_backend/internal/commission/policy"
	"flyttbas_backend/internal/commission/repository"
	"flyttbas_backend/internal/commission/service"
	apphttp "flyttbas_backend/internal/http"
	"flyttbas_backend/platform/db"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the commission bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the commission module. The configured defaults and
// bounds are parsed once at startup.
func NewModule(pool *pgxpool.Pool, tx db.Transactor, cfg policy.Config, val *validator.Validator, log *logger.Logger) (*Module, error) {
	defaults, err := policy.DefaultsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	bounds, err := policy.BoundsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := bounds.Validate(defaults.Type, defaults.Rate); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, tx, defaults, bounds, log)
	return &Module{handler: handler.New(svc, val), service: svc}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "commission"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts commission routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/commission"))
	m.handler.RegisterPartnerRoutes(ctx.Partner.Group("/commission"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
