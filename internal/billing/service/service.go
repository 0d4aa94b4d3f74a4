// Package service implements subscription checkout, the billing portal
// redirect, PIX QR rendering, and the provider webhook.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"medicrm_backend/internal/billing/client"
	"medicrm_backend/internal/billing/repository"
	"medicrm_backend/internal/billing/transport"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

const qrCodeSize = 256

// Provider abstracts the billing provider client for testability.
type Provider interface {
	CreateCustomer(ctx context.Context, input client.CustomerInput) (string, error)
	CreateSubscription(ctx context.Context, input client.SubscriptionInput) (client.Subscription, error)
	ListPayments(ctx context.Context, subscriptionID string) ([]client.Payment, error)
	PixPayload(ctx context.Context, paymentID string) (string, error)
	PortalURL(ctx context.Context, customerID string) (string, error)
}

// Service handles subscription billing.
type Service struct {
	repo     repository.Repository
	provider Provider
	log      *logger.Logger
}

// New creates a new billing service.
func New(repo repository.Repository, provider Provider, log *logger.Logger) *Service {
	return &Service{repo: repo, provider: provider, log: log}
}

// ListPlans returns all purchasable plans.
func (s *Service) ListPlans(ctx context.Context) (transport.PlanListResponse, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return transport.PlanListResponse{}, err
	}

	responses := make([]transport.PlanResponse, 0, len(plans))
	for _, p := range plans {
		responses = append(responses, transport.PlanResponse{
			ID:         p.ID,
			Name:       p.Name,
			PriceCents: p.PriceCents,
			Cycle:      p.Cycle,
		})
	}
	return transport.PlanListResponse{Plans: responses}, nil
}

// Subscription returns the tenant's current subscription.
func (s *Service) Subscription(ctx context.Context, tenantID uuid.UUID) (transport.SubscriptionResponse, error) {
	sub, err := s.repo.GetSubscriptionByTenant(ctx, tenantID)
	if err != nil {
		return transport.SubscriptionResponse{}, err
	}
	return toResponse(sub), nil
}

// Checkout creates a provider customer, opens a subscription on the
// chosen plan, and stores it as pending. Activation happens via the
// provider webhook once the first payment confirms.
func (s *Service) Checkout(ctx context.Context, tenantID uuid.UUID, req transport.CheckoutRequest) (transport.SubscriptionResponse, error) {
	if existing, err := s.repo.GetSubscriptionByTenant(ctx, tenantID); err == nil {
		if existing.Status == repository.StatusActive || existing.Status == repository.StatusPending {
			return transport.SubscriptionResponse{}, apperr.Conflict("tenant already has a subscription")
		}
	}

	plan, err := s.repo.GetPlan(ctx, req.PlanID)
	if err != nil {
		return transport.SubscriptionResponse{}, err
	}

	customerID, err := s.provider.CreateCustomer(ctx, client.CustomerInput{
		Name:        req.Name,
		Email:       req.Email,
		CpfCnpj:     req.CpfCnpj,
		MobilePhone: req.MobilePhone,
	})
	if err != nil {
		return transport.SubscriptionResponse{}, err
	}

	providerSub, err := s.provider.CreateSubscription(ctx, client.SubscriptionInput{
		CustomerID:  customerID,
		BillingType: req.BillingType,
		Value:       float64(plan.PriceCents) / 100,
		Cycle:       plan.Cycle,
		Description: fmt.Sprintf("MediCRM %s", plan.Name),
	})
	if err != nil {
		return transport.SubscriptionResponse{}, err
	}

	sub, err := s.repo.CreateSubscription(ctx, tenantID, plan.ID, customerID, providerSub.ID, repository.StatusPending)
	if err != nil {
		return transport.SubscriptionResponse{}, err
	}

	s.log.Info("subscription checkout created",
		"tenant_id", tenantID, "plan", plan.Name, "provider_subscription_id", providerSub.ID)
	return toResponse(sub), nil
}

// PortalURL returns the provider's self-service portal URL for the
// tenant. The URL is opaque; its contents are never interpreted.
func (s *Service) PortalURL(ctx context.Context, tenantID uuid.UUID) (transport.PortalResponse, error) {
	sub, err := s.repo.GetSubscriptionByTenant(ctx, tenantID)
	if err != nil {
		return transport.PortalResponse{}, err
	}

	url, err := s.provider.PortalURL(ctx, sub.ProviderCustomerID)
	if err != nil {
		return transport.PortalResponse{}, err
	}
	return transport.PortalResponse{URL: url}, nil
}

// PixQRCode renders a PNG QR code for the tenant's oldest pending
// invoice. Returns NotFound when nothing is awaiting payment.
func (s *Service) PixQRCode(ctx context.Context, tenantID uuid.UUID) ([]byte, error) {
	sub, err := s.repo.GetSubscriptionByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	payments, err := s.provider.ListPayments(ctx, sub.ProviderSubscriptionID)
	if err != nil {
		return nil, err
	}

	var pending *client.Payment
	for i := range payments {
		if payments[i].Status == "PENDING" {
			pending = &payments[i]
			break
		}
	}
	if pending == nil {
		return nil, apperr.NotFound("no pending invoice")
	}

	payload, err := s.provider.PixPayload(ctx, pending.ID)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("render pix qr code: %w", err)
	}
	return png, nil
}

func toResponse(sub repository.Subscription) transport.SubscriptionResponse {
	return transport.SubscriptionResponse{
		ID:        sub.ID,
		PlanID:    sub.PlanID,
		Status:    sub.Status,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
	}
}
