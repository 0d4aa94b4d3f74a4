// Package leads provides the lead bounded context module.
package leads

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/internal/leads/handler"
	"medicrm_backend/internal/leads/repository"
	"medicrm_backend/internal/leads/service"
	"medicrm_backend/internal/search"
	stagesrepo "medicrm_backend/internal/stages/repository"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the leads module. searcher and
// indexer may be nil when search is not configured.
func NewModule(pool *pgxpool.Pool, stages stagesrepo.Repository, bus events.Bus, searcher search.Searcher, indexer search.Indexer, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, stages, bus, searcher, indexer, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/leads", m.handler.List)
	ctx.Protected.GET("/leads/kanban", m.handler.Kanban)
	ctx.Protected.GET("/leads/search", m.handler.Search)
	ctx.Protected.GET("/leads/:id", m.handler.Get)
	ctx.Protected.POST("/leads", m.handler.Create)
	ctx.Protected.PUT("/leads/:id", m.handler.Update)
	ctx.Protected.PUT("/leads/:id/stage", m.handler.Move)
	ctx.Protected.PUT("/leads/:id/convert", m.handler.Convert)
	ctx.Protected.DELETE("/leads/:id", m.handler.Archive)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
