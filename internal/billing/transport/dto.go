// Package transport defines request and response types for the billing
// HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutRequest starts a subscription for the tenant.
type CheckoutRequest struct {
	PlanID      uuid.UUID `json:"planId" validate:"required"`
	BillingType string    `json:"billingType" validate:"required,oneof=CREDIT_CARD PIX BOLETO"`
	// Provider customer fields.
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Email       string `json:"email" validate:"required,email"`
	CpfCnpj     string `json:"cpfCnpj" validate:"required,min=11,max=18"`
	MobilePhone string `json:"mobilePhone" validate:"omitempty,max=32"`
}

// PlanResponse is the public view of a plan.
type PlanResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
	Cycle      string    `json:"cycle"`
}

// PlanListResponse wraps all purchasable plans.
type PlanListResponse struct {
	Plans []PlanResponse `json:"plans"`
}

// SubscriptionResponse is the public view of the tenant's subscription.
type SubscriptionResponse struct {
	ID        uuid.UUID `json:"id"`
	PlanID    uuid.UUID `json:"planId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PortalResponse carries the opaque provider portal URL.
type PortalResponse struct {
	URL string `json:"url"`
}

// WebhookEvent is the provider's webhook payload. Only the fields this
// application reacts to are decoded.
type WebhookEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payment struct {
		ID           string `json:"id"`
		Subscription string `json:"subscription"`
		BillingType  string `json:"billingType"`
		Status       string `json:"status"`
	} `json:"payment"`
}
