// Package http defines the contracts between the router and the domain
// modules that mount routes on it.
package http

import (
	"medicrm_backend/platform/config"
	"medicrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own routes. The router
// never knows individual endpoints, only modules.
type Module interface {
	// Name identifies the module in logs.
	Name() string
	// RegisterRoutes mounts the module's routes using the shared groups
	// and middleware in RouterContext.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext bundles what modules need to register routes.
type RouterContext struct {
	// Engine is the root gin engine, for modules needing engine-level access.
	Engine *gin.Engine
	// V1 is the public /api/v1 group.
	V1 *gin.RouterGroup
	// Protected is the authenticated group under /api/v1.
	Protected *gin.RouterGroup
	// Admin is the admin-role group under /api/v1/admin.
	Admin *gin.RouterGroup
	// Config exposes the JWT settings to modules that build their own middleware.
	Config config.JWTConfig
	// AuthMiddleware is the shared token-validation middleware.
	AuthMiddleware gin.HandlerFunc
	// AuthRateLimiter is the stricter per-IP limiter for the auth routes.
	AuthRateLimiter *httpkit.AuthRateLimiter
}
