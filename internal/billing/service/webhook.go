package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"medicrm_backend/internal/billing/repository"
	"medicrm_backend/internal/billing/transport"
	"medicrm_backend/internal/events"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/metrics"
)

// The provider retries webhooks for 24h; dedup entries live slightly
// longer than that.
const dedupTTL = 25 * time.Hour

const dedupKeyPrefix = "billing:webhook:"

// Payment events that confirm money arrived.
var paymentConfirmedEvents = map[string]bool{
	"PAYMENT_RECEIVED":  true,
	"PAYMENT_CONFIRMED": true,
}

// WebhookService processes billing provider webhooks.
type WebhookService struct {
	repo   repository.Repository
	redis  *redis.Client
	bus    events.Bus
	secret string
	log    *logger.Logger
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(repo repository.Repository, redisClient *redis.Client, bus events.Bus, secret string, log *logger.Logger) *WebhookService {
	return &WebhookService{
		repo:   repo,
		redis:  redisClient,
		bus:    bus,
		secret: secret,
		log:    log,
	}
}

// VerifySignature checks the HMAC-SHA256 signature of the raw webhook
// body against the shared secret.
func (s *WebhookService) VerifySignature(body []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperr.Unauthorized("invalid webhook signature")
	}
	return nil
}

// Process handles a verified webhook event exactly once. Replays of an
// already-seen event ID succeed without side effects.
func (s *WebhookService) Process(ctx context.Context, event transport.WebhookEvent) error {
	if event.ID == "" {
		return apperr.Validation("webhook event id is required")
	}

	fresh, err := s.redis.SetNX(ctx, dedupKeyPrefix+event.ID, "1", dedupTTL).Result()
	if err != nil {
		// Redis down: process anyway, activation is idempotent.
		s.log.Warn("webhook dedup unavailable", "event_id", event.ID, "error", err)
	} else if !fresh {
		s.log.Debug("webhook event already processed", "event_id", event.ID)
		return nil
	}

	if !paymentConfirmedEvents[event.Event] {
		s.log.Debug("webhook event ignored", "event_id", event.ID, "event", event.Event)
		return nil
	}

	sub, err := s.repo.GetSubscriptionByProviderID(ctx, event.Payment.Subscription)
	if err != nil {
		return err
	}

	metrics.PaymentsReceived.WithLabelValues(event.Payment.BillingType, event.Payment.Status).Inc()
	s.log.BillingEvent("payment_received", sub.TenantID, event.Payment.ID)
	s.bus.Publish(ctx, events.PaymentReceived{
		BaseEvent:      events.NewBaseEvent(),
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		ProviderID:     event.Payment.ID,
		BillingType:    event.Payment.BillingType,
	})

	if sub.Status != repository.StatusActive {
		activated, err := s.repo.SetSubscriptionStatus(ctx, sub.ID, repository.StatusActive)
		if err != nil {
			return err
		}

		plan, err := s.repo.GetPlan(ctx, activated.PlanID)
		if err != nil {
			return err
		}

		metrics.SubscriptionsActivated.Inc()
		s.bus.Publish(ctx, events.SubscriptionActivated{
			BaseEvent:      events.NewBaseEvent(),
			TenantID:       activated.TenantID,
			SubscriptionID: activated.ID,
			PlanName:       plan.Name,
		})
		s.log.Info("subscription activated",
			"tenant_id", activated.TenantID, "subscription_id", activated.ID, "plan", plan.Name)
	}

	return nil
}
