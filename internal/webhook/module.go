// Package webhook provides the public lead intake bounded context module.
package webhook

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/internal/scheduler"
	"medicrm_backend/internal/webhook/handler"
	"medicrm_backend/internal/webhook/repository"
	"medicrm_backend/internal/webhook/service"
	"medicrm_backend/platform/config"
	"medicrm_backend/platform/httpkit"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the webhook intake bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	limiter *httpkit.IPRateLimiter
}

// NewModule creates and initializes the webhook module. enqueuer may be
// nil when the task queue is disabled.
func NewModule(pool *pgxpool.Pool, leads service.LeadCreator, bus events.Bus, enqueuer scheduler.TaskEnqueuer, cfg config.WebhookConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leads, bus, enqueuer, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		limiter: httpkit.NewIPRateLimiter(rate.Limit(cfg.GetWebhookRateLimit()), cfg.GetWebhookRateBurst(), log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// Service returns the service layer for the worker's replay handler.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts intake and token management routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhooks/intake/:token", m.limiter.RateLimit(), m.handler.Intake)

	ctx.Admin.POST("/webhooks/tokens", m.handler.CreateToken)
	ctx.Admin.GET("/webhooks/tokens", m.handler.ListTokens)
	ctx.Admin.DELETE("/webhooks/tokens/:id", m.handler.DeleteToken)
	ctx.Admin.POST("/webhooks/events/:id/replay", m.handler.ReplayEvent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
