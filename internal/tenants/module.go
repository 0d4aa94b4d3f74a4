// Package tenants provides the clinic bounded context module.
package tenants

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/internal/tenants/handler"
	"medicrm_backend/internal/tenants/repository"
	"medicrm_backend/internal/tenants/service"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the tenants bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the tenants module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tenants"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts tenant routes on the provided router context.
// Registration is public but shares the stricter auth rate limit.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/tenants")
	public.Use(ctx.AuthRateLimiter.RateLimit())
	public.POST("/register", m.handler.Register)

	ctx.Protected.GET("/tenants/me", m.handler.Profile)
	ctx.Admin.PUT("/tenants/me", m.handler.UpdateProfile)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
