// Package maps provides address lookup and road distance over OpenStreetMap services.
package maps

import (
	apphttp "flyttbas_backend/internal/http"
	"flyttbas_backend/platform/config"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

// Module wires the maps HTTP routes.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule builds the maps module. A nil cache disables distance caching.
func NewModule(cfg config.MapsConfig, cache redis.Cmdable, val *validator.Validator, log *logger.Logger) *Module {
	opts := []Option{
		WithGeocoderURL(cfg.GetGeocoderURL()),
		WithRoutingURL(cfg.GetRoutingURL()),
		WithUserAgent(cfg.GetMapsUserAgent()),
	}
	if cache != nil {
		opts = append(opts, WithCache(cache, cfg.GetDistanceCacheTTL()))
	}
	svc := NewService(log, opts...)
	return &Module{handler: NewHandler(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "maps"
}

// Service returns the distance collaborator for other modules.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublic(ctx.Public.Group("/maps"))
	ctx.Admin.Group("/maps").GET("/distance", m.handler.Distance)
}

var _ apphttp.Module = (*Module)(nil)
