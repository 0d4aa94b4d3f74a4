// Package auth provides the authentication bounded context module.
package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/auth/handler"
	"medicrm_backend/internal/auth/repository"
	"medicrm_backend/internal/auth/service"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/platform/config"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the auth module.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts auth routes on the provided router context.
// Login and refresh are public but share the stricter auth rate limit.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/auth")
	public.Use(ctx.AuthRateLimiter.RateLimit())
	public.POST("/login", m.handler.SignIn)
	public.POST("/refresh", m.handler.Refresh)

	ctx.Protected.POST("/auth/logout", m.handler.SignOut)
	ctx.Protected.GET("/auth/me", m.handler.Me)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
