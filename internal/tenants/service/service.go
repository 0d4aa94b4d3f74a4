// Package service implements clinic registration and profile management.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"medicrm_backend/internal/auth/password"
	"medicrm_backend/internal/events"
	"medicrm_backend/internal/tenants/repository"
	"medicrm_backend/internal/tenants/transport"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/phone"
	"medicrm_backend/platform/sanitize"
)

// Service handles tenant lifecycle.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new tenants service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Register creates a clinic with its first admin user and announces the
// new tenant. Default stages and tags are seeded by subscribers before
// this call returns, so the clinic is usable on first login.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (transport.RegisterResponse, error) {
	hash, err := password.Hash(req.AdminPassword)
	if err != nil {
		return transport.RegisterResponse{}, err
	}

	registration, err := s.repo.Register(ctx, repository.RegisterParams{
		ClinicName:        sanitize.Text(req.ClinicName),
		Phone:             normalizePhone(req.Phone),
		Document:          sanitize.TextPtr(req.Document),
		AdminName:         sanitize.Text(req.AdminName),
		AdminEmail:        strings.ToLower(strings.TrimSpace(req.AdminEmail)),
		AdminPasswordHash: hash,
	})
	if err != nil {
		return transport.RegisterResponse{}, err
	}

	event := events.TenantCreated{
		BaseEvent:  events.NewBaseEvent(),
		TenantID:   registration.Tenant.ID,
		Name:       registration.Tenant.Name,
		AdminID:    registration.AdminID,
		AdminEmail: registration.AdminEmail,
	}
	if err := s.bus.PublishSync(ctx, event); err != nil {
		// The clinic exists; seeding subscribers are idempotent and can
		// be replayed. Surface in logs only.
		s.log.Error("tenant created handlers failed", "tenant_id", registration.Tenant.ID, "error", err)
	}

	s.log.Info("clinic registered", "tenant_id", registration.Tenant.ID, "name", registration.Tenant.Name)

	return transport.RegisterResponse{
		Tenant:  toResponse(registration.Tenant),
		AdminID: registration.AdminID,
	}, nil
}

// Profile returns the clinic profile.
func (s *Service) Profile(ctx context.Context, tenantID uuid.UUID) (transport.TenantResponse, error) {
	tenant, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return transport.TenantResponse{}, err
	}
	return toResponse(tenant), nil
}

// UpdateProfile edits the clinic profile.
func (s *Service) UpdateProfile(ctx context.Context, tenantID uuid.UUID, req transport.UpdateProfileRequest) (transport.TenantResponse, error) {
	tenant, err := s.repo.Update(ctx, tenantID, sanitize.Text(req.Name), normalizePhone(req.Phone), sanitize.TextPtr(req.Document))
	if err != nil {
		return transport.TenantResponse{}, err
	}
	return toResponse(tenant), nil
}

func normalizePhone(raw *string) *string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	normalized := phone.NormalizeE164(*raw)
	return &normalized
}

func toResponse(t repository.Tenant) transport.TenantResponse {
	return transport.TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Phone:     t.Phone,
		Document:  t.Document,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
