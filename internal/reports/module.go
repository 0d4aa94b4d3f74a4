// Package reports provides the AI management report bounded context module.
package reports

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/internal/reports/handler"
	"medicrm_backend/internal/reports/repository"
	"medicrm_backend/internal/reports/service"
	"medicrm_backend/internal/scheduler"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the reports bounded context module implementing http.Module.
// The API process only queues and reads reports; generation runs in the
// worker, which wires source and generator into the same service.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the reports module for the API side.
func NewModule(pool *pgxpool.Pool, enqueuer scheduler.TaskEnqueuer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, enqueuer, nil, nil, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reports"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts report routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/reports", m.handler.List)
	ctx.Protected.POST("/reports", m.handler.Create)
	ctx.Protected.GET("/reports/:id", m.handler.Get)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
