package email

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/platform/config"
	"medicrm_backend/platform/logger"
)

// Module subscribes to domain events and sends the matching
// transactional emails. Send failures are logged, never propagated, so a
// broken SMTP server cannot fail the originating operation.
type Module struct {
	pool   *pgxpool.Pool
	sender Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// NewModule creates a new email module.
func NewModule(pool *pgxpool.Pool, sender Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{pool: pool, sender: sender, cfg: cfg, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "email" }

// RegisterRoutes is a no-op: this module only reacts to events.
func (m *Module) RegisterRoutes(_ *apphttp.RouterContext) {}

// RegisterHandlers subscribes to events that trigger an email.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.TenantCreated{}.EventName(), m)
	bus.Subscribe(events.ReportReady{}.EventName(), m)
	bus.Subscribe(events.SubscriptionActivated{}.EventName(), m)
}

// Handle routes events to the appropriate email.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.TenantCreated:
		if err := m.sender.SendWelcomeEmail(ctx, e.AdminEmail, e.Name, m.buildURL("/login")); err != nil {
			m.log.Error("welcome email failed", "tenant_id", e.TenantID, "error", err)
		}
	case events.ReportReady:
		m.sendToAdmin(ctx, e.TenantID, func(toEmail string) error {
			return m.sender.SendReportReadyEmail(ctx, toEmail, e.Period, m.buildURL("/reports/"+e.ReportID.String()))
		})
	case events.SubscriptionActivated:
		m.sendToAdmin(ctx, e.TenantID, func(toEmail string) error {
			return m.sender.SendSubscriptionActiveEmail(ctx, toEmail, e.PlanName)
		})
	}
	return nil
}

func (m *Module) sendToAdmin(ctx context.Context, tenantID uuid.UUID, send func(toEmail string) error) {
	toEmail, err := m.adminEmail(ctx, tenantID)
	if err != nil {
		m.log.Warn("could not resolve tenant admin email", "tenant_id", tenantID, "error", err)
		return
	}
	if err := send(toEmail); err != nil {
		m.log.Error("transactional email failed", "tenant_id", tenantID, "error", err)
	}
}

func (m *Module) adminEmail(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var email string
	err := m.pool.QueryRow(ctx,
		`SELECT email FROM users WHERE tenant_id = $1 AND role = 'admin' ORDER BY created_at LIMIT 1`,
		tenantID,
	).Scan(&email)
	return email, err
}

func (m *Module) buildURL(path string) string {
	return strings.TrimRight(m.cfg.GetAppBaseURL(), "/") + path
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
