// Package dashboard provides the dashboard bounded context module.
package dashboard

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/dashboard/handler"
	"medicrm_backend/internal/dashboard/repository"
	"medicrm_backend/internal/dashboard/service"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the dashboard bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the dashboard module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dashboard"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts dashboard routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/dashboard", m.handler.Get)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
