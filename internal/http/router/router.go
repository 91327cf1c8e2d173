package router

import (
	"context"
	"net/http"
	"time"

	apphttp "flyttbas_backend/internal/http"
	"flyttbas_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 2 * time.Second

// New builds the Gin engine and mounts every module on its role-scoped groups.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if app.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Metrics, promhttp.HandlerOpts{})))
	}

	limiter := httpkit.NewPerMinuteLimiter(app.Config.GetPublicRateLimitPerMinute(), app.Logger)

	v1 := engine.Group("/api/v1")
	rc := &apphttp.RouterContext{
		Engine:   engine,
		V1:       v1,
		Public:   v1.Group("", limiter.RateLimit(), httpkit.OptionalAuth(app.Config)),
		Customer: v1.Group("", httpkit.AuthRequired(app.Config), httpkit.RequireRole(httpkit.RoleCustomer)),
		Partner:  v1.Group("/partner", httpkit.AuthRequired(app.Config), httpkit.RequireRole(httpkit.RolePartner)),
		Admin:    v1.Group("/admin", httpkit.AuthRequired(app.Config), httpkit.RequireRole(httpkit.RoleAdmin)),
		Config:   app.Config,
	}

	for _, m := range app.Modules {
		m.RegisterRoutes(rc)
		app.Logger.Debug("module routes registered", "module", m.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		c.AllowAllOrigins = true
	} else if origins := cfg.GetCORSOrigins(); len(origins) > 0 {
		c.AllowOrigins = origins
	} else {
		c.AllowOriginFunc = func(string) bool { return false }
	}
	return c
}
