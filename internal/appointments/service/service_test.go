package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"medicrm_backend/internal/appointments/repository"
	"medicrm_backend/internal/appointments/transport"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

type fakeRepo struct {
	appointments map[uuid.UUID]repository.Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{appointments: make(map[uuid.UUID]repository.Appointment)}
}

func (f *fakeRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, from, to time.Time) ([]repository.Appointment, error) {
	result := make([]repository.Appointment, 0)
	for _, a := range f.appointments {
		if a.TenantID == tenantID && !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (repository.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok || a.TenantID != tenantID {
		return repository.Appointment{}, apperr.NotFound("appointment not found")
	}
	return a, nil
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateParams) (repository.Appointment, error) {
	a := repository.Appointment{
		ID:         uuid.New(),
		TenantID:   params.TenantID,
		LeadID:     params.LeadID,
		Title:      params.Title,
		Status:     repository.StatusScheduled,
		StartsAt:   params.StartsAt,
		EndsAt:     params.EndsAt,
		Notes:      params.Notes,
		ValueCents: params.ValueCents,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.appointments[a.ID] = a
	return a, nil
}

func (f *fakeRepo) Update(_ context.Context, tenantID, id uuid.UUID, params repository.UpdateParams) (repository.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok || a.TenantID != tenantID {
		return repository.Appointment{}, apperr.NotFound("appointment not found")
	}
	if params.Title != nil {
		a.Title = *params.Title
	}
	if params.StartsAt != nil {
		a.StartsAt = *params.StartsAt
	}
	if params.ValueCents != nil {
		a.ValueCents = *params.ValueCents
	}
	f.appointments[id] = a
	return a, nil
}

func (f *fakeRepo) SetStatus(_ context.Context, tenantID, id uuid.UUID, status string) (repository.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok || a.TenantID != tenantID {
		return repository.Appointment{}, apperr.NotFound("appointment not found")
	}
	a.Status = status
	f.appointments[id] = a
	return a, nil
}

func (f *fakeRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	a, ok := f.appointments[id]
	if !ok || a.TenantID != tenantID {
		return apperr.NotFound("appointment not found")
	}
	delete(f.appointments, id)
	return nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return New(repo, logger.New("test")), repo
}

func create(t *testing.T, svc *Service, tenantID uuid.UUID) transport.AppointmentResponse {
	t.Helper()
	a, err := svc.Create(context.Background(), tenantID, transport.CreateAppointmentRequest{
		Title:    "Consulta Botox",
		StartsAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func TestStatusFollowsTransitionTable(t *testing.T) {
	svc, _ := newTestService()
	tenantID := uuid.New()
	a := create(t, svc, tenantID)

	if a.Status != repository.StatusScheduled {
		t.Fatalf("expected new appointment to be scheduled, got %s", a.Status)
	}

	completed, err := svc.SetStatus(context.Background(), tenantID, a.ID, repository.StatusCompleted)
	if err != nil {
		t.Fatalf("scheduled -> completed: %v", err)
	}
	if completed.Status != repository.StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}

	paid, err := svc.SetStatus(context.Background(), tenantID, a.ID, repository.StatusPaid)
	if err != nil {
		t.Fatalf("completed -> paid: %v", err)
	}
	if paid.Status != repository.StatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
}

func TestStatusRejectsIllegalTransition(t *testing.T) {
	svc, _ := newTestService()
	tenantID := uuid.New()
	a := create(t, svc, tenantID)

	// Jumping straight to paid skips the completed state.
	if _, err := svc.SetStatus(context.Background(), tenantID, a.ID, repository.StatusPaid); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := svc.SetStatus(context.Background(), tenantID, a.ID, repository.StatusCompleted); err != nil {
		t.Fatalf("scheduled -> completed: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), tenantID, a.ID, repository.StatusScheduled); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error moving back from completed, got %v", err)
	}
}

func TestStatusSameValueIsNoop(t *testing.T) {
	svc, _ := newTestService()
	tenantID := uuid.New()
	a := create(t, svc, tenantID)

	result, err := svc.SetStatus(context.Background(), tenantID, a.ID, repository.StatusScheduled)
	if err != nil {
		t.Fatalf("same-status set: %v", err)
	}
	if result.Status != repository.StatusScheduled {
		t.Fatalf("expected scheduled, got %s", result.Status)
	}
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	svc, _ := newTestService()
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(-time.Hour)

	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateAppointmentRequest{
		Title:    "Consulta",
		StartsAt: start,
		EndsAt:   &end,
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStatusIsTenantScoped(t *testing.T) {
	svc, _ := newTestService()
	a := create(t, svc, uuid.New())

	if _, err := svc.SetStatus(context.Background(), uuid.New(), a.ID, repository.StatusCompleted); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for foreign tenant, got %v", err)
	}
}
