// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"flyttbas_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
// Each domain module implements this interface to encapsulate its own
// route setup, keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router context.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides the role-scoped route groups modules mount on.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the bare /api/v1 route group.
	V1 *gin.RouterGroup
	// Public is rate limited and carries the identity when a token is present.
	Public *gin.RouterGroup
	// Customer requires an authenticated customer.
	Customer *gin.RouterGroup
	// Partner is /api/v1/partner and requires the partner role.
	Partner *gin.RouterGroup
	// Admin is /api/v1/admin and requires the admin role.
	Admin *gin.RouterGroup
	// Config is the JWT configuration for modules adding their own guards.
	Config config.JWTConfig
}
