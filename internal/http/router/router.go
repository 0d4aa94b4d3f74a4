// Package router assembles the Gin engine from the registered modules.
package router

import (
	"net/http"

	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/platform/httpkit"
	"medicrm_backend/platform/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the Gin engine, mounts shared middleware, and lets every
// module register its routes on the shared route groups.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(metrics.Middleware())
	engine.Use(corsMiddleware(app.Config))

	globalLimiter := httpkit.NewIPRateLimiter(50, 100, app.Logger)
	engine.Use(globalLimiter.RateLimit())

	engine.GET("/api/health", func(c *gin.Context) {
		if err := app.Health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", metrics.Handler())

	authMiddleware := httpkit.AuthRequired(app.Config)

	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(authMiddleware)
	admin := protected.Group("/admin")
	admin.Use(httpkit.RequireRole("admin"))

	routerCtx := &apphttp.RouterContext{
		Engine:          engine,
		V1:              v1,
		Protected:       protected,
		Admin:           admin,
		Config:          app.Config,
		AuthMiddleware:  authMiddleware,
		AuthRateLimiter: httpkit.NewAuthRateLimiter(app.Logger),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Info("module routes registered", "module", module.Name())
	}

	return engine
}

func corsMiddleware(cfg apphttp.RouterConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

	if cfg.GetCORSAllowAll() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.GetCORSOrigins()
		corsConfig.AllowCredentials = cfg.GetCORSAllowCreds()
	}

	return cors.New(corsConfig)
}
