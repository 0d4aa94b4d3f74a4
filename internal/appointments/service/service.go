// Package service implements appointment scheduling and status
// transitions.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medicrm_backend/internal/appointments/repository"
	"medicrm_backend/internal/appointments/transport"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/sanitize"
)

// Default listing window around now.
const (
	defaultLookBehind = 30 * 24 * time.Hour
	defaultLookAhead  = 60 * 24 * time.Hour
)

// transitions maps each status to the statuses it may move to.
var transitions = map[string][]string{
	repository.StatusScheduled: {repository.StatusCompleted, repository.StatusCancelled, repository.StatusNoShow},
	repository.StatusCompleted: {repository.StatusPaid},
	repository.StatusPaid:      {},
	repository.StatusCancelled: {repository.StatusScheduled},
	repository.StatusNoShow:    {repository.StatusScheduled},
}

// Service handles appointments.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new appointments service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List returns the tenant's appointments inside the requested window.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListAppointmentsRequest) (transport.AppointmentListResponse, error) {
	now := time.Now()
	from := now.Add(-defaultLookBehind)
	to := now.Add(defaultLookAhead)
	if req.From != nil {
		from = *req.From
	}
	if req.To != nil {
		to = *req.To
	}
	if !to.After(from) {
		return transport.AppointmentListResponse{}, apperr.Validation("window end must be after window start")
	}

	appointments, err := s.repo.ListByTenant(ctx, tenantID, from, to)
	if err != nil {
		return transport.AppointmentListResponse{}, err
	}

	responses := make([]transport.AppointmentResponse, 0, len(appointments))
	for _, a := range appointments {
		responses = append(responses, toResponse(a))
	}
	return transport.AppointmentListResponse{Appointments: responses, Total: len(responses)}, nil
}

// Get returns a single appointment.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (transport.AppointmentResponse, error) {
	appointment, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return transport.AppointmentResponse{}, err
	}
	return toResponse(appointment), nil
}

// Create schedules a new appointment.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateAppointmentRequest) (transport.AppointmentResponse, error) {
	if req.ValueCents < 0 {
		return transport.AppointmentResponse{}, apperr.Validation("value must not be negative")
	}
	if req.EndsAt != nil && !req.EndsAt.After(req.StartsAt) {
		return transport.AppointmentResponse{}, apperr.Validation("appointment end must be after its start")
	}

	appointment, err := s.repo.Create(ctx, repository.CreateParams{
		TenantID:   tenantID,
		LeadID:     req.LeadID,
		Title:      sanitize.Text(req.Title),
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		Notes:      sanitize.TextPtr(req.Notes),
		ValueCents: req.ValueCents,
	})
	if err != nil {
		return transport.AppointmentResponse{}, err
	}
	return toResponse(appointment), nil
}

// Update edits appointment fields.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req transport.UpdateAppointmentRequest) (transport.AppointmentResponse, error) {
	if req.ValueCents != nil && *req.ValueCents < 0 {
		return transport.AppointmentResponse{}, apperr.Validation("value must not be negative")
	}

	var title *string
	if req.Title != nil {
		clean := sanitize.Text(*req.Title)
		title = &clean
	}

	appointment, err := s.repo.Update(ctx, tenantID, id, repository.UpdateParams{
		Title:      title,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		Notes:      sanitize.TextPtr(req.Notes),
		ValueCents: req.ValueCents,
	})
	if err != nil {
		return transport.AppointmentResponse{}, err
	}
	return toResponse(appointment), nil
}

// SetStatus transitions the appointment to a new status. Only moves
// allowed by the transition table are accepted.
func (s *Service) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (transport.AppointmentResponse, error) {
	current, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return transport.AppointmentResponse{}, err
	}

	if current.Status != status && !allowed(current.Status, status) {
		return transport.AppointmentResponse{}, apperr.Validation(
			fmt.Sprintf("cannot move appointment from %s to %s", current.Status, status))
	}

	appointment, err := s.repo.SetStatus(ctx, tenantID, id, status)
	if err != nil {
		return transport.AppointmentResponse{}, err
	}

	s.log.Info("appointment status changed",
		"tenant_id", tenantID, "appointment_id", id, "from", current.Status, "to", status)
	return toResponse(appointment), nil
}

// Delete removes an appointment.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}

func allowed(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func toResponse(a repository.Appointment) transport.AppointmentResponse {
	return transport.AppointmentResponse{
		ID:         a.ID,
		LeadID:     a.LeadID,
		Title:      a.Title,
		Status:     a.Status,
		StartsAt:   a.StartsAt,
		EndsAt:     a.EndsAt,
		Notes:      a.Notes,
		ValueCents: a.ValueCents,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
