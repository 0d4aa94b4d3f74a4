// Package appointments provides the appointment bounded context module.
package appointments

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/appointments/handler"
	"medicrm_backend/internal/appointments/repository"
	"medicrm_backend/internal/appointments/service"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the appointments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the appointments module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes mounts appointment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/appointments", m.handler.List)
	ctx.Protected.POST("/appointments", m.handler.Create)
	ctx.Protected.GET("/appointments/:id", m.handler.Get)
	ctx.Protected.PUT("/appointments/:id", m.handler.Update)
	ctx.Protected.PUT("/appointments/:id/status", m.handler.SetStatus)
	ctx.Protected.DELETE("/appointments/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
