// Package service implements the public lead intake pipeline: token
// resolution, field extraction, lead creation, and event storage.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"medicrm_backend/internal/auth/token"
	"medicrm_backend/internal/events"
	leadstransport "medicrm_backend/internal/leads/transport"
	"medicrm_backend/internal/scheduler"
	"medicrm_backend/internal/webhook/extractor"
	"medicrm_backend/internal/webhook/repository"
	"medicrm_backend/internal/webhook/transport"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

const intakeTokenBytes = 32

// Leads without a recognizable name still become kanban cards so the
// clinic can chase the contact data.
const fallbackLeadName = "Contato sem nome"

// LeadCreator is the slice of the leads service the intake needs.
type LeadCreator interface {
	Create(ctx context.Context, tenantID uuid.UUID, req leadstransport.CreateLeadRequest) (leadstransport.LeadResponse, error)
}

// Service handles intake tokens and submissions.
type Service struct {
	repo     repository.Repository
	leads    LeadCreator
	bus      events.Bus
	enqueuer scheduler.TaskEnqueuer
	log      *logger.Logger
}

// New creates a new webhook service. enqueuer may be nil when background
// tasks are disabled, in which case replay requests are rejected.
func New(repo repository.Repository, leads LeadCreator, bus events.Bus, enqueuer scheduler.TaskEnqueuer, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leads, bus: bus, enqueuer: enqueuer, log: log}
}

// RequestReplay validates the event and schedules a background replay.
func (s *Service) RequestReplay(ctx context.Context, tenantID, eventID uuid.UUID) error {
	if s.enqueuer == nil {
		return apperr.Internal("webhook replay is not configured")
	}
	if _, err := s.repo.GetEvent(ctx, tenantID, eventID); err != nil {
		return err
	}
	return s.enqueuer.EnqueueWebhookReplay(ctx, scheduler.WebhookReplayPayload{
		EventID:  eventID,
		TenantID: tenantID,
	})
}

// CreateToken mints an intake token for the tenant. The raw token is
// returned exactly once; only its hash is stored.
func (s *Service) CreateToken(ctx context.Context, tenantID uuid.UUID, label string) (transport.TokenCreatedResponse, error) {
	raw, err := token.GenerateRandomToken(intakeTokenBytes)
	if err != nil {
		return transport.TokenCreatedResponse{}, fmt.Errorf("generate intake token: %w", err)
	}

	created, err := s.repo.CreateToken(ctx, tenantID, label, token.HashSHA256(raw))
	if err != nil {
		return transport.TokenCreatedResponse{}, err
	}

	return transport.TokenCreatedResponse{
		ID:    created.ID,
		Label: created.Label,
		Token: raw,
	}, nil
}

// ListTokens returns the tenant's intake tokens without their secrets.
func (s *Service) ListTokens(ctx context.Context, tenantID uuid.UUID) (transport.TokenListResponse, error) {
	tokens, err := s.repo.ListTokens(ctx, tenantID)
	if err != nil {
		return transport.TokenListResponse{}, err
	}

	responses := make([]transport.TokenResponse, 0, len(tokens))
	for _, t := range tokens {
		responses = append(responses, transport.TokenResponse{
			ID:        t.ID,
			Label:     t.Label,
			CreatedAt: t.CreatedAt,
		})
	}
	return transport.TokenListResponse{Tokens: responses}, nil
}

// DeleteToken revokes an intake token.
func (s *Service) DeleteToken(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.DeleteToken(ctx, tenantID, id)
}

// Intake captures a submission. The raw payload is stored verbatim;
// recognized fields become a lead. Submissions missing contact data are
// kept and flagged instead of dropped.
func (s *Service) Intake(ctx context.Context, rawToken, sourceDomain string, payload map[string]interface{}) (transport.IntakeResponse, error) {
	if rawToken == "" {
		return transport.IntakeResponse{}, apperr.Unauthorized("missing intake token")
	}

	tenantID, err := s.repo.ResolveTenant(ctx, token.HashSHA256(rawToken))
	if err != nil {
		return transport.IntakeResponse{}, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return transport.IntakeResponse{}, apperr.BadRequest("payload is not valid json")
	}

	extracted := extractor.Extract(extractor.Flatten(payload))

	var leadID *uuid.UUID
	if extracted.Name != "" || extracted.Phone != "" || extracted.Email != "" {
		lead, err := s.createLead(ctx, tenantID, extracted)
		if err != nil {
			s.log.Error("intake lead creation failed", "tenant_id", tenantID, "error", err)
		} else {
			leadID = &lead.ID
		}
	}

	event, err := s.repo.CreateEvent(ctx, tenantID, sourceDomain, raw, leadID, extracted.Incomplete)
	if err != nil {
		return transport.IntakeResponse{}, err
	}

	if leadID != nil {
		s.bus.Publish(ctx, events.WebhookLeadCaptured{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       *leadID,
			TenantID:     tenantID,
			SourceDomain: sourceDomain,
			IsIncomplete: extracted.Incomplete,
		})
	}

	s.log.Info("intake submission captured",
		"tenant_id", tenantID, "event_id", event.ID, "incomplete", extracted.Incomplete)

	return transport.IntakeResponse{
		EventID:    event.ID,
		LeadID:     leadID,
		Incomplete: extracted.Incomplete,
	}, nil
}

// Replay re-runs extraction over a stored event, filling in the lead if
// the original pass produced none. Used by the worker.
func (s *Service) Replay(ctx context.Context, tenantID, eventID uuid.UUID) error {
	event, err := s.repo.GetEvent(ctx, tenantID, eventID)
	if err != nil {
		return err
	}
	if event.LeadID != nil {
		return nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode stored payload: %w", err)
	}

	extracted := extractor.Extract(extractor.Flatten(payload))
	if extracted.Name == "" && extracted.Phone == "" && extracted.Email == "" {
		return nil
	}

	lead, err := s.createLead(ctx, tenantID, extracted)
	if err != nil {
		return err
	}
	return s.repo.SetEventLead(ctx, event.ID, lead.ID, extracted.Incomplete)
}

func (s *Service) createLead(ctx context.Context, tenantID uuid.UUID, extracted extractor.Extracted) (leadstransport.LeadResponse, error) {
	name := extracted.Name
	if name == "" {
		name = fallbackLeadName
	}

	source := extracted.Source
	if source == "" {
		source = "webhook"
	}

	return s.leads.Create(ctx, tenantID, leadstransport.CreateLeadRequest{
		Name:              name,
		Phone:             optional(extracted.Phone),
		Email:             optional(extracted.Email),
		ServiceOfInterest: optional(extracted.ServiceOfInterest),
		AdName:            optional(extracted.AdName),
		Source:            &source,
	})
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
