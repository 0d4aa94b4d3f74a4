// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"medicrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Tenant Domain Events
// =============================================================================

// TenantCreated is published when a new clinic registers.
// Stage and tag seeding plus the welcome email hang off this event.
type TenantCreated struct {
	BaseEvent
	TenantID   uuid.UUID `json:"tenantId"`
	Name       string    `json:"name"`
	AdminID    uuid.UUID `json:"adminId"`
	AdminEmail string    `json:"adminEmail"`
}

func (e TenantCreated) EventName() string { return "tenants.created" }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the funnel.
type LeadCreated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Name     string    `json:"name"`
	Source   string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadUpdated is published when lead fields change (value, tag, contact data).
type LeadUpdated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
}

func (e LeadUpdated) EventName() string { return "leads.updated" }

// LeadStageChanged is published when a lead moves to another kanban stage.
type LeadStageChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	TenantID  uuid.UUID `json:"tenantId"`
	FromStage uuid.UUID `json:"fromStage"`
	ToStage   uuid.UUID `json:"toStage"`
	MovedByID uuid.UUID `json:"movedById"`
}

func (e LeadStageChanged) EventName() string { return "leads.stage.changed" }

// LeadConverted is published when a lead is flagged as converted.
type LeadConverted struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Service  string    `json:"service,omitempty"`
}

func (e LeadConverted) EventName() string { return "leads.converted" }

// =============================================================================
// Stages Domain Events
// =============================================================================

// StagesReordered is published after a kanban reorder is fully persisted.
type StagesReordered struct {
	BaseEvent
	TenantID uuid.UUID   `json:"tenantId"`
	StageIDs []uuid.UUID `json:"stageIds"` // new order, position 0 first
}

func (e StagesReordered) EventName() string { return "stages.reordered" }

// =============================================================================
// Chat Domain Events
// =============================================================================

// MessageSent is published when a message (text or media) is persisted.
// SSE and the WhatsApp outbound channel subscribe to this.
type MessageSent struct {
	BaseEvent
	MessageID      uuid.UUID `json:"messageId"`
	ConversationID uuid.UUID `json:"conversationId"`
	TenantID       uuid.UUID `json:"tenantId"`
	LeadID         uuid.UUID `json:"leadId"`
	Type           string    `json:"type"` // text, image, audio, file
	Content        string    `json:"content"`
	AttachmentURL  string    `json:"attachmentUrl,omitempty"`
	Channel        string    `json:"channel"`   // whatsapp, web
	Direction      string    `json:"direction"` // inbound, outbound
	AIEnabled      bool      `json:"aiEnabled"`
}

func (e MessageSent) EventName() string { return "chat.message.sent" }

// =============================================================================
// Webhook Domain Events
// =============================================================================

// WebhookLeadCaptured is published when a lead arrives via the public intake endpoint.
type WebhookLeadCaptured struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	TenantID     uuid.UUID `json:"tenantId"`
	SourceDomain string    `json:"sourceDomain"`
	IsIncomplete bool      `json:"isIncomplete"`
}

func (e WebhookLeadCaptured) EventName() string { return "webhook.lead.captured" }

// =============================================================================
// Billing Domain Events
// =============================================================================

// PaymentReceived is published when the billing provider confirms a payment.
type PaymentReceived struct {
	BaseEvent
	TenantID       uuid.UUID `json:"tenantId"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	ProviderID     string    `json:"providerId"`
	BillingType    string    `json:"billingType"`
}

func (e PaymentReceived) EventName() string { return "billing.payment.received" }

// SubscriptionActivated is published when a subscription transitions to active.
type SubscriptionActivated struct {
	BaseEvent
	TenantID       uuid.UUID `json:"tenantId"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	PlanName       string    `json:"planName"`
}

func (e SubscriptionActivated) EventName() string { return "billing.subscription.activated" }

// =============================================================================
// Reports Domain Events
// =============================================================================

// ReportReady is published when the AI report finished rendering.
type ReportReady struct {
	BaseEvent
	ReportID uuid.UUID `json:"reportId"`
	TenantID uuid.UUID `json:"tenantId"`
	Period   string    `json:"period"`
}

func (e ReportReady) EventName() string { return "reports.ready" }
