// Package chat provides the conversation bounded context module.
package chat

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/chat/handler"
	"medicrm_backend/internal/chat/repository"
	"medicrm_backend/internal/chat/service"
	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/internal/storage"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the chat bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the chat module.
func NewModule(pool *pgxpool.Pool, storageSvc storage.Service, mediaBucket string, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	uploader := service.NewUploadCoordinator(repo, storageSvc, mediaBucket, bus, log)
	svc := service.New(repo, uploader, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "chat"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts chat routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/chat/conversations", m.handler.ListConversations)
	ctx.Protected.POST("/chat/conversations", m.handler.OpenConversation)
	ctx.Protected.PUT("/chat/conversations/:id/ai", m.handler.SetAIEnabled)
	ctx.Protected.GET("/chat/conversations/:id/messages", m.handler.ListMessages)
	ctx.Protected.POST("/chat/conversations/:id/messages", m.handler.SendText)
	ctx.Protected.POST("/chat/conversations/:id/media", m.handler.UploadMedia)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
