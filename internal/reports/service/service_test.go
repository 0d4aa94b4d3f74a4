package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"medicrm_backend/internal/dashboard/aggregate"
	dashrepo "medicrm_backend/internal/dashboard/repository"
	"medicrm_backend/internal/events"
	"medicrm_backend/internal/reports/repository"
	"medicrm_backend/internal/reports/transport"
	"medicrm_backend/internal/scheduler"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

type fakeRepo struct {
	reports map[uuid.UUID]repository.Report
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reports: make(map[uuid.UUID]repository.Report)}
}

func (f *fakeRepo) Create(_ context.Context, tenantID uuid.UUID, period string) (repository.Report, error) {
	r := repository.Report{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Period:    period,
		Status:    repository.StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.reports[r.ID] = r
	return r, nil
}

func (f *fakeRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (repository.Report, error) {
	r, ok := f.reports[id]
	if !ok || r.TenantID != tenantID {
		return repository.Report{}, apperr.NotFound("report not found")
	}
	return r, nil
}

func (f *fakeRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]repository.Report, error) {
	result := make([]repository.Report, 0)
	for _, r := range f.reports {
		if r.TenantID == tenantID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (f *fakeRepo) SetRunning(_ context.Context, id uuid.UUID) error {
	return f.setStatus(id, repository.StatusRunning, nil, nil)
}

func (f *fakeRepo) SetDone(_ context.Context, id uuid.UUID, content string) error {
	return f.setStatus(id, repository.StatusDone, &content, nil)
}

func (f *fakeRepo) SetFailed(_ context.Context, id uuid.UUID, reason string) error {
	return f.setStatus(id, repository.StatusFailed, nil, &reason)
}

func (f *fakeRepo) setStatus(id uuid.UUID, status string, content, reason *string) error {
	r, ok := f.reports[id]
	if !ok {
		return apperr.NotFound("report not found")
	}
	r.Status = status
	if content != nil {
		r.Content = content
	}
	r.Error = reason
	f.reports[id] = r
	return nil
}

type fakeEnqueuer struct {
	payloads []scheduler.ReportGeneratePayload
	fail     bool
}

func (f *fakeEnqueuer) EnqueueReportGenerate(_ context.Context, payload scheduler.ReportGeneratePayload) error {
	if f.fail {
		return errors.New("queue unavailable")
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeEnqueuer) EnqueueWebhookReplay(context.Context, scheduler.WebhookReplayPayload) error {
	return nil
}

type fakeSource struct {
	kpis dashrepo.KPIs
}

func (f *fakeSource) Aggregates(context.Context, uuid.UUID, int) ([]aggregate.Lead, []aggregate.Appointment, dashrepo.KPIs, error) {
	return []aggregate.Lead{}, []aggregate.Appointment{}, f.kpis, nil
}

type fakeGenerator struct {
	content string
	err     error
	calls   int
}

func (f *fakeGenerator) Generate(context.Context, uuid.UUID, string, []aggregate.Lead, []aggregate.Appointment, dashrepo.KPIs) (string, error) {
	f.calls++
	return f.content, f.err
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func TestRequestQueuesReport(t *testing.T) {
	repo := newFakeRepo()
	enqueuer := &fakeEnqueuer{}
	svc := New(repo, enqueuer, nil, nil, &recordingBus{}, logger.New("test"))
	tenantID := uuid.New()

	report, err := svc.Request(context.Background(), tenantID, transport.CreateReportRequest{Days: 7})
	if err != nil {
		t.Fatalf("request report: %v", err)
	}
	if report.Status != repository.StatusQueued {
		t.Fatalf("expected queued, got %s", report.Status)
	}
	if report.Period != "7d" {
		t.Fatalf("expected period 7d, got %s", report.Period)
	}
	if len(enqueuer.payloads) != 1 || enqueuer.payloads[0].ReportID != report.ID {
		t.Fatalf("expected one enqueued task for %s, got %+v", report.ID, enqueuer.payloads)
	}
}

func TestRequestDefaultsPeriod(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, &fakeEnqueuer{}, nil, nil, &recordingBus{}, logger.New("test"))

	report, err := svc.Request(context.Background(), uuid.New(), transport.CreateReportRequest{})
	if err != nil {
		t.Fatalf("request report: %v", err)
	}
	if report.Period != "30d" {
		t.Fatalf("expected default period 30d, got %s", report.Period)
	}
}

func TestRequestEnqueueFailureMarksFailed(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, &fakeEnqueuer{fail: true}, nil, nil, &recordingBus{}, logger.New("test"))

	_, err := svc.Request(context.Background(), uuid.New(), transport.CreateReportRequest{})
	if err == nil {
		t.Fatal("expected error when enqueue fails")
	}
	for _, r := range repo.reports {
		if r.Status != repository.StatusFailed {
			t.Fatalf("expected failed report, got %s", r.Status)
		}
	}
}

func TestProcessGeneratesAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	generator := &fakeGenerator{content: "# Relatório\n\nTudo certo."}
	svc := New(repo, &fakeEnqueuer{}, &fakeSource{}, generator, bus, logger.New("test"))
	tenantID := uuid.New()

	report, _ := repo.Create(context.Background(), tenantID, "30d")

	err := svc.Process(context.Background(), scheduler.ReportGeneratePayload{ReportID: report.ID, TenantID: tenantID})
	if err != nil {
		t.Fatalf("process report: %v", err)
	}

	stored := repo.reports[report.ID]
	if stored.Status != repository.StatusDone {
		t.Fatalf("expected done, got %s", stored.Status)
	}
	if stored.Content == nil || *stored.Content != generator.content {
		t.Fatalf("expected stored content, got %v", stored.Content)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.events) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.events))
	}
	ready, ok := bus.events[0].(events.ReportReady)
	if !ok {
		t.Fatalf("expected ReportReady, got %T", bus.events[0])
	}
	if ready.ReportID != report.ID || ready.Period != "30d" {
		t.Fatalf("unexpected event payload: %+v", ready)
	}
}

func TestProcessGeneratorFailureMarksFailed(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	generator := &fakeGenerator{err: errors.New("model unavailable")}
	svc := New(repo, &fakeEnqueuer{}, &fakeSource{}, generator, bus, logger.New("test"))
	tenantID := uuid.New()

	report, _ := repo.Create(context.Background(), tenantID, "30d")

	err := svc.Process(context.Background(), scheduler.ReportGeneratePayload{ReportID: report.ID, TenantID: tenantID})
	if err == nil {
		t.Fatal("expected error so asynq retries")
	}

	stored := repo.reports[report.ID]
	if stored.Status != repository.StatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if stored.Error == nil || *stored.Error != "model unavailable" {
		t.Fatalf("expected stored failure reason, got %v", stored.Error)
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.events) != 0 {
		t.Fatalf("expected no events on failure, got %d", len(bus.events))
	}
}

func TestProcessSkipsCompletedReport(t *testing.T) {
	repo := newFakeRepo()
	generator := &fakeGenerator{content: "done"}
	svc := New(repo, &fakeEnqueuer{}, &fakeSource{}, generator, &recordingBus{}, logger.New("test"))
	tenantID := uuid.New()

	report, _ := repo.Create(context.Background(), tenantID, "30d")
	if err := repo.SetDone(context.Background(), report.ID, "already there"); err != nil {
		t.Fatalf("seed done report: %v", err)
	}

	if err := svc.Process(context.Background(), scheduler.ReportGeneratePayload{ReportID: report.ID, TenantID: tenantID}); err != nil {
		t.Fatalf("process done report: %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("expected generator untouched, got %d calls", generator.calls)
	}
}
