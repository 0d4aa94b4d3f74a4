// Package service assembles the dashboard read model.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"medicrm_backend/internal/dashboard/aggregate"
	"medicrm_backend/internal/dashboard/repository"
	"medicrm_backend/internal/dashboard/transport"
	"medicrm_backend/platform/logger"
)

const defaultWindowDays = 30

// Service builds dashboard responses by fanning in the read queries and
// running the pure aggregation transforms.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new dashboard service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Build assembles the full dashboard for a tenant over a trailing window.
func (s *Service) Build(ctx context.Context, tenantID uuid.UUID, days int) (transport.DashboardResponse, error) {
	if days <= 0 {
		days = defaultWindowDays
	}
	end := time.Now()
	start := truncateToDay(end.AddDate(0, 0, -(days - 1)))

	var (
		leads        []aggregate.Lead
		appointments []aggregate.Appointment
		kpis         repository.KPIs
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = s.repo.LeadsInWindow(gctx, tenantID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		appointments, err = s.repo.AppointmentsInWindow(gctx, tenantID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		kpis, err = s.repo.KPIs(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.DashboardResponse{}, err
	}

	adStats := aggregate.AdPerformance(leads)
	for _, row := range adStats {
		if len(row.Variants) > 1 {
			s.log.Debug("ad name variants grouped", "tenantId", tenantID, "adName", row.AdName, "variants", row.Variants)
		}
	}

	return transport.DashboardResponse{
		KPIs:          kpis,
		LeadsOverTime: aggregate.LeadTimeSeries(leads, start, end),
		Conversions:   aggregate.ConversionsByCategory(leads, appointments),
		AdPerformance: adStats,
	}, nil
}

// Aggregates returns the raw aggregation inputs for a window. The report
// generator uses this to build its prompt without going through HTTP DTOs.
func (s *Service) Aggregates(ctx context.Context, tenantID uuid.UUID, days int) ([]aggregate.Lead, []aggregate.Appointment, repository.KPIs, error) {
	if days <= 0 {
		days = defaultWindowDays
	}
	end := time.Now()
	start := truncateToDay(end.AddDate(0, 0, -(days - 1)))

	leads, err := s.repo.LeadsInWindow(ctx, tenantID, start, end)
	if err != nil {
		return nil, nil, repository.KPIs{}, err
	}
	appointments, err := s.repo.AppointmentsInWindow(ctx, tenantID, start, end)
	if err != nil {
		return nil, nil, repository.KPIs{}, err
	}
	kpis, err := s.repo.KPIs(ctx, tenantID)
	if err != nil {
		return nil, nil, repository.KPIs{}, err
	}
	return leads, appointments, kpis, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
