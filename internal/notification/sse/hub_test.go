package sse

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"medicrm_backend/platform/logger"
)

func newTestHub() *Hub {
	return NewHub(logger.New("test"))
}

func TestBroadcastReachesAllTenantClients(t *testing.T) {
	hub := newTestHub()
	tenantID := uuid.New()
	otherTenant := uuid.New()

	a := &client{userID: uuid.New(), tenantID: tenantID, events: make(chan Notification, 4)}
	b := &client{userID: uuid.New(), tenantID: tenantID, events: make(chan Notification, 4)}
	outsider := &client{userID: uuid.New(), tenantID: otherTenant, events: make(chan Notification, 4)}
	hub.addClient(a)
	hub.addClient(b)
	hub.addClient(outsider)

	hub.Broadcast(tenantID, Notification{Type: EventLeadUpdated})

	for _, c := range []*client{a, b} {
		select {
		case n := <-c.events:
			if n.Type != EventLeadUpdated {
				t.Fatalf("unexpected notification type %q", n.Type)
			}
		default:
			t.Fatal("client did not receive the notification")
		}
	}
	select {
	case <-outsider.events:
		t.Fatal("notification leaked to another tenant")
	default:
	}
}

func TestBroadcastSkipsFullBuffers(t *testing.T) {
	hub := newTestHub()
	tenantID := uuid.New()

	slow := &client{userID: uuid.New(), tenantID: tenantID, events: make(chan Notification, 1)}
	hub.addClient(slow)
	slow.events <- Notification{Type: EventMessageSent}

	done := make(chan struct{})
	go func() {
		hub.Broadcast(tenantID, Notification{Type: EventReportReady})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow consumer")
	}
}

func TestRemoveClientCleansUpTenantEntry(t *testing.T) {
	hub := newTestHub()
	tenantID := uuid.New()

	c := &client{userID: uuid.New(), tenantID: tenantID, events: make(chan Notification, 1)}
	hub.addClient(c)
	if got := hub.ConnectedClients(tenantID); got != 1 {
		t.Fatalf("expected 1 connected client, got %d", got)
	}

	hub.removeClient(c)
	if got := hub.ConnectedClients(tenantID); got != 0 {
		t.Fatalf("expected 0 connected clients, got %d", got)
	}
	if _, open := <-c.events; open {
		t.Fatal("client channel should be closed")
	}

	// Broadcasting afterwards must not panic on the closed channel.
	hub.Broadcast(tenantID, Notification{Type: EventLeadStageChanged})
}

func TestRemoveClientAfterCloseIsNoop(t *testing.T) {
	// A streaming handler's deferred removeClient runs after Close
	// already dropped the client; closing the channel again would panic.
	hub := newTestHub()
	c := &client{userID: uuid.New(), tenantID: uuid.New(), events: make(chan Notification, 1)}
	hub.addClient(c)

	hub.Close()
	hub.removeClient(c)

	if _, open := <-c.events; open {
		t.Fatal("channel should be closed after hub shutdown")
	}
}

func TestBroadcastDuringDisconnect(t *testing.T) {
	// Concurrent broadcasts and disconnects must never send on a closed
	// channel.
	hub := newTestHub()
	tenantID := uuid.New()

	const clients = 16
	conns := make([]*client, clients)
	for i := range conns {
		conns[i] = &client{userID: uuid.New(), tenantID: tenantID, events: make(chan Notification, 1)}
		hub.addClient(conns[i])
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast(tenantID, Notification{Type: EventMessageSent})
		}
		close(done)
	}()
	for _, c := range conns {
		hub.removeClient(c)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast did not finish")
	}
	if got := hub.ConnectedClients(tenantID); got != 0 {
		t.Fatalf("expected 0 connected clients, got %d", got)
	}
}

func TestCloseDropsAllConnections(t *testing.T) {
	hub := newTestHub()
	a := &client{userID: uuid.New(), tenantID: uuid.New(), events: make(chan Notification, 1)}
	b := &client{userID: uuid.New(), tenantID: uuid.New(), events: make(chan Notification, 1)}
	hub.addClient(a)
	hub.addClient(b)

	hub.Close()

	for _, c := range []*client{a, b} {
		if _, open := <-c.events; open {
			t.Fatal("channel should be closed after hub shutdown")
		}
		if got := hub.ConnectedClients(c.tenantID); got != 0 {
			t.Fatalf("expected no clients after shutdown, got %d", got)
		}
	}
}
