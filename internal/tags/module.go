// Package tags provides the tag bounded context module.
package tags

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/internal/tags/cache"
	"medicrm_backend/internal/tags/handler"
	"medicrm_backend/internal/tags/repository"
	"medicrm_backend/internal/tags/service"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the tags bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the tags module. The Redis client
// may be nil to disable the list cache.
func NewModule(pool *pgxpool.Pool, redisClient *redis.Client, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	var tagCache *cache.Cache
	if redisClient != nil {
		tagCache = cache.New(redisClient)
	}

	svc := service.New(repo, tagCache, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tags"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts tag routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/tags", m.handler.List)
	ctx.Protected.POST("/tags", m.handler.Create)
	ctx.Protected.PUT("/tags/:id", m.handler.Update)
	ctx.Protected.DELETE("/tags/:id", m.handler.Delete)
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
