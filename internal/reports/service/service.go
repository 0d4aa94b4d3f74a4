// Package service implements report queueing and background generation.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

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

const defaultReportDays = 30

// AggregateSource supplies the dashboard aggregates the report is
// built from.
type AggregateSource interface {
	Aggregates(ctx context.Context, tenantID uuid.UUID, days int) ([]aggregate.Lead, []aggregate.Appointment, dashrepo.KPIs, error)
}

// Generator renders the markdown report.
type Generator interface {
	Generate(ctx context.Context, tenantID uuid.UUID, period string, leads []aggregate.Lead, appointments []aggregate.Appointment, kpis dashrepo.KPIs) (string, error)
}

// Service handles report lifecycle.
type Service struct {
	repo      repository.Repository
	enqueuer  scheduler.TaskEnqueuer
	source    AggregateSource
	generator Generator
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new reports service. The enqueuer is used by the API
// process; source and generator are used by the worker. Either side may
// leave the other's dependencies nil.
func New(repo repository.Repository, enqueuer scheduler.TaskEnqueuer, source AggregateSource, generator Generator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		enqueuer:  enqueuer,
		source:    source,
		generator: generator,
		bus:       bus,
		log:       log,
	}
}

// Request stores a queued report and enqueues its generation task.
func (s *Service) Request(ctx context.Context, tenantID uuid.UUID, req transport.CreateReportRequest) (transport.ReportResponse, error) {
	if s.enqueuer == nil {
		return transport.ReportResponse{}, apperr.Internal("report generation is not configured")
	}

	days := req.Days
	if days <= 0 {
		days = defaultReportDays
	}

	report, err := s.repo.Create(ctx, tenantID, fmt.Sprintf("%dd", days))
	if err != nil {
		return transport.ReportResponse{}, err
	}

	if err := s.enqueuer.EnqueueReportGenerate(ctx, scheduler.ReportGeneratePayload{
		ReportID: report.ID,
		TenantID: tenantID,
	}); err != nil {
		if failErr := s.repo.SetFailed(ctx, report.ID, "failed to enqueue generation task"); failErr != nil {
			s.log.Error("mark report failed", "report_id", report.ID, "error", failErr)
		}
		return transport.ReportResponse{}, fmt.Errorf("enqueue report task: %w", err)
	}

	s.log.Info("report queued", "tenant_id", tenantID, "report_id", report.ID, "period", report.Period)
	return toResponse(report), nil
}

// Get returns a report including its content once done.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (transport.ReportResponse, error) {
	report, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return transport.ReportResponse{}, err
	}
	return toResponse(report), nil
}

// List returns the tenant's reports, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) (transport.ReportListResponse, error) {
	reports, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return transport.ReportListResponse{}, err
	}

	responses := make([]transport.ReportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, toResponse(report))
	}
	return transport.ReportListResponse{Reports: responses, Total: len(responses)}, nil
}

// Process generates a queued report. Called by the worker; returning an
// error lets asynq retry within its bounded policy.
func (s *Service) Process(ctx context.Context, payload scheduler.ReportGeneratePayload) error {
	report, err := s.repo.GetByID(ctx, payload.TenantID, payload.ReportID)
	if err != nil {
		return err
	}
	if report.Status == repository.StatusDone {
		return nil
	}

	if err := s.repo.SetRunning(ctx, report.ID); err != nil {
		return err
	}

	leads, appointments, kpis, err := s.source.Aggregates(ctx, report.TenantID, periodDays(report.Period))
	if err != nil {
		return s.fail(ctx, report.ID, err)
	}

	content, err := s.generator.Generate(ctx, report.TenantID, report.Period, leads, appointments, kpis)
	if err != nil {
		return s.fail(ctx, report.ID, err)
	}

	if err := s.repo.SetDone(ctx, report.ID, content); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.ReportReady{
		BaseEvent: events.NewBaseEvent(),
		ReportID:  report.ID,
		TenantID:  report.TenantID,
		Period:    report.Period,
	})
	s.log.WithTenant(report.TenantID).Info("report generated", "report_id", report.ID, "period", report.Period)
	return nil
}

func (s *Service) fail(ctx context.Context, reportID uuid.UUID, cause error) error {
	if err := s.repo.SetFailed(ctx, reportID, cause.Error()); err != nil {
		s.log.Error("mark report failed", "report_id", reportID, "error", err)
	}
	return cause
}

func periodDays(period string) int {
	days, err := strconv.Atoi(strings.TrimSuffix(period, "d"))
	if err != nil || days <= 0 {
		return defaultReportDays
	}
	return days
}

func toResponse(r repository.Report) transport.ReportResponse {
	return transport.ReportResponse{
		ID:        r.ID,
		Period:    r.Period,
		Status:    r.Status,
		Content:   r.Content,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
