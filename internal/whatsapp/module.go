package whatsapp

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/platform/logger"
)

// Sender sends a WhatsApp message. Satisfied by *Client.
type Sender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// Module relays outbound messages from whatsapp conversations to the
// gateway. Inbound messages and other channels are ignored.
type Module struct {
	pool   *pgxpool.Pool
	sender Sender
	log    *logger.Logger
}

// NewModule creates a new whatsapp module. A nil sender disables the channel.
func NewModule(pool *pgxpool.Pool, sender Sender, log *logger.Logger) *Module {
	return &Module{pool: pool, sender: sender, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "whatsapp" }

// RegisterRoutes is a no-op: this module only reacts to events.
func (m *Module) RegisterRoutes(_ *apphttp.RouterContext) {}

// RegisterHandlers subscribes to sent messages.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.MessageSent{}.EventName(), m)
}

// Handle relays outbound text messages on the whatsapp channel.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.MessageSent)
	if !ok {
		return nil
	}
	if m.sender == nil || e.Channel != "whatsapp" || e.Direction != "outbound" {
		return nil
	}

	content := e.Content
	if e.Type != "text" && e.AttachmentURL != "" {
		content = e.AttachmentURL
	}

	phoneNumber, err := m.leadPhone(ctx, e.TenantID, e.LeadID)
	if err != nil {
		m.log.Warn("lead has no phone for whatsapp delivery",
			"lead_id", e.LeadID, "message_id", e.MessageID, "error", err)
		return nil
	}

	if err := m.sender.SendMessage(ctx, phoneNumber, content); err != nil {
		m.log.Error("whatsapp delivery failed",
			"lead_id", e.LeadID, "message_id", e.MessageID, "error", err)
		return err
	}
	return nil
}

func (m *Module) leadPhone(ctx context.Context, tenantID, leadID uuid.UUID) (string, error) {
	var phoneNumber *string
	err := m.pool.QueryRow(ctx,
		`SELECT phone FROM leads WHERE id = $1 AND tenant_id = $2`,
		leadID, tenantID,
	).Scan(&phoneNumber)
	if err != nil {
		return "", err
	}
	if phoneNumber == nil || *phoneNumber == "" {
		return "", errNoPhone
	}
	return *phoneNumber, nil
}

var errNoPhone = errors.New("lead has no phone number")

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
