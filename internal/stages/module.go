// Package stages provides the kanban stage bounded context module.
package stages

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/internal/stages/handler"
	"medicrm_backend/internal/stages/repository"
	"medicrm_backend/internal/stages/service"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the stages bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the stages module.
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
	return "stages"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts stage routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/stages", m.handler.List)
	ctx.Protected.POST("/stages", m.handler.Create)
	ctx.Protected.PUT("/stages/reorder", m.handler.Reorder)
	ctx.Protected.PUT("/stages/:id", m.handler.Update)
	ctx.Protected.DELETE("/stages/:id", m.handler.Delete)
}

// RegisterHandlers subscribes to domain events for seeding tenant defaults.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.TenantCreated{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.TenantCreated:
		return m.service.SeedDefaults(ctx, e)
	default:
		return nil
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
