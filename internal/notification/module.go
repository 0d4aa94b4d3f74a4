// Package notification subscribes to domain events and fans them out to
// connected agents over Server-Sent Events. Domain modules publish events
// without knowing who is listening.
package notification

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medicrm_backend/internal/events"
	apphttp "medicrm_backend/internal/http"
	"medicrm_backend/internal/notification/sse"
	"medicrm_backend/platform/httpkit"
	"medicrm_backend/platform/logger"
)

// Module handles real-time notification fan-out.
type Module struct {
	hub *sse.Hub
	log *logger.Logger
}

// NewModule creates a new notification module.
func NewModule(log *logger.Logger) *Module {
	return &Module{
		hub: sse.NewHub(log),
		log: log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// Hub exposes the SSE hub for graceful shutdown.
func (m *Module) Hub() *sse.Hub { return m.hub }

// RegisterRoutes mounts the SSE stream endpoint. EventSource cannot set
// headers, so the auth middleware also accepts the token as a query param.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/stream", m.hub.Handler(identify))
}

func identify(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, uuid.Nil, false
	}
	return identity.UserID(), identity.TenantID(), true
}

// RegisterHandlers subscribes to the events agents care about in real time.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.MessageSent{}.EventName(), m)
	bus.Subscribe(events.LeadUpdated{}.EventName(), m)
	bus.Subscribe(events.LeadStageChanged{}.EventName(), m)
	bus.Subscribe(events.ReportReady{}.EventName(), m)
}

// Handle maps domain events onto SSE notifications.
func (m *Module) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.MessageSent:
		m.hub.Broadcast(e.TenantID, sse.Notification{
			Type: sse.EventMessageSent,
			Data: e,
		})
	case events.LeadUpdated:
		m.hub.Broadcast(e.TenantID, sse.Notification{
			Type: sse.EventLeadUpdated,
			Data: e,
		})
	case events.LeadStageChanged:
		m.hub.Broadcast(e.TenantID, sse.Notification{
			Type: sse.EventLeadStageChanged,
			Data: e,
		})
	case events.ReportReady:
		m.hub.Broadcast(e.TenantID, sse.Notification{
			Type: sse.EventReportReady,
			Data: e,
		})
	}
	return nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
