// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medicrm_backend/platform/logger"
)

// EventType identifies the kind of notification pushed to connected agents.
type EventType string

const (
	EventMessageSent      EventType = "message_sent"
	EventLeadUpdated      EventType = "lead_updated"
	EventLeadStageChanged EventType = "lead_stage_changed"
	EventReportReady      EventType = "report_ready"
)

// Notification is the SSE payload sent to clients.
type Notification struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// client represents a connected SSE stream.
type client struct {
	userID   uuid.UUID
	tenantID uuid.UUID
	events   chan Notification
}

// Hub manages SSE connections grouped per tenant.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // tenantID -> connections
	log     *logger.Logger
}

// NewHub creates a new SSE hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.tenantID] = append(h.clients[c.tenantID], c)
}

// removeClient unregisters the connection and closes its channel. A
// client already dropped by Close is left alone so the channel is never
// closed twice.
func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[c.tenantID]
	for i, cl := range clients {
		if cl == c {
			h.clients[c.tenantID] = append(clients[:i], clients[i+1:]...)
			if len(h.clients[c.tenantID]) == 0 {
				delete(h.clients, c.tenantID)
			}
			close(c.events)
			return
		}
	}
}

// Broadcast pushes a notification to every agent connected for the tenant.
// Slow consumers with a full buffer are skipped rather than blocked on.
// Sends stay under the read lock: channels are only closed under the
// write lock, so a registered channel cannot close mid-send, and the
// non-blocking send keeps the lock hold short.
func (h *Hub) Broadcast(tenantID uuid.UUID, notification Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients[tenantID] {
		select {
		case c.events <- notification:
		default:
			h.log.Warn("sse buffer full, dropping notification",
				"tenant_id", tenantID, "user_id", c.userID, "type", notification.Type)
		}
	}
}

// ConnectedClients reports how many streams are open for a tenant.
func (h *Hub) ConnectedClients(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

// Handler returns a gin handler that holds the connection open and
// streams notifications until the client disconnects.
func (h *Hub) Handler(identify func(*gin.Context) (userID, tenantID uuid.UUID, ok bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, tenantID, ok := identify(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID:   userID,
			tenantID: tenantID,
			events:   make(chan Notification, 32),
		}
		h.addClient(cl)
		defer h.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		h.log.Debug("sse client connected", "tenant_id", tenantID, "user_id", userID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				h.log.Debug("sse client disconnected", "tenant_id", tenantID, "user_id", userID)
				return
			case notification, open := <-cl.events:
				if !open {
					return
				}
				data, _ := json.Marshal(notification)
				c.SSEvent(string(notification.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close drops all open connections. Clients are unregistered before
// their channels close, so the streaming handlers' deferred
// removeClient calls find nothing left to close.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	h.clients = make(map[uuid.UUID][]*client)
}
