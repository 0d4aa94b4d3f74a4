// Package billing provides the subscription billing bounded context module.
package billing

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"medicrm_backend/internal/billing/client"
	"medicrm_backend/internal/billing/handler"
	"medicrm_backend/internal/billing/repository"
	"medicrm_backend/internal/billing/service"
	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/platform/config"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/validator"
)

// Module is the billing bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	webhook *service.WebhookService
}

// NewModule creates and initializes the billing module.
func NewModule(pool *pgxpool.Pool, redisClient *redis.Client, bus events.Bus, cfg config.BillingConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	provider := client.New(cfg.GetBillingAPIKey(), cfg.GetBillingBaseURL(), log)
	svc := service.New(repo, provider, log)
	webhook := service.NewWebhookService(repo, redisClient, bus, cfg.GetBillingWebhookSecret(), log)
	h := handler.New(svc, webhook, val)

	return &Module{
		handler: h,
		service: svc,
		webhook: webhook,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "billing"
}

// RegisterRoutes mounts billing routes on the provided router context.
// The webhook endpoint is public; the provider authenticates with an
// HMAC signature instead of a JWT.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/billing/webhook", m.handler.Webhook)

	ctx.Protected.GET("/billing/plans", m.handler.ListPlans)
	ctx.Protected.GET("/billing/subscription", m.handler.Subscription)
	ctx.Protected.GET("/billing/pix-qrcode", m.handler.PixQRCode)

	ctx.Admin.POST("/billing/checkout", m.handler.Checkout)
	ctx.Admin.GET("/billing/portal", m.handler.Portal)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
