// Package repository provides read-model queries for the dashboard.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/internal/dashboard/aggregate"
)

// KPIs holds the headline dashboard numbers computed in SQL.
type KPIs struct {
	TotalLeads          int   `json:"totalLeads"`
	ConvertedLeads      int   `json:"convertedLeads"`
	OpenLeads           int   `json:"openLeads"`
	ProjectedValueCents int64 `json:"projectedValueCents"`
	ConvertedValueCents int64 `json:"convertedValueCents"`
}

// Repository combines all dashboard read operations.
type Repository interface {
	LeadsInWindow(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]aggregate.Lead, error)
	AppointmentsInWindow(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]aggregate.Appointment, error)
	KPIs(ctx context.Context, tenantID uuid.UUID) (KPIs, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres dashboard repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) LeadsInWindow(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]aggregate.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT created_at, converted, COALESCE(service_of_interest, ''), COALESCE(ad_name, '')
		FROM leads
		WHERE tenant_id = $1
		  AND archived_at IS NULL
		  AND created_at >= $2
		  AND created_at < $3`, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("dashboard leads: %w", err)
	}
	defer rows.Close()

	leads := make([]aggregate.Lead, 0)
	for rows.Next() {
		var l aggregate.Lead
		if err := rows.Scan(&l.CreatedAt, &l.Converted, &l.ServiceOfInterest, &l.AdName); err != nil {
			return nil, fmt.Errorf("scan dashboard lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *postgresRepository) AppointmentsInWindow(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]aggregate.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT title, status
		FROM appointments
		WHERE tenant_id = $1
		  AND starts_at >= $2
		  AND starts_at < $3`, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("dashboard appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]aggregate.Appointment, 0)
	for rows.Next() {
		var a aggregate.Appointment
		if err := rows.Scan(&a.Title, &a.Status); err != nil {
			return nil, fmt.Errorf("scan dashboard appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

func (r *postgresRepository) KPIs(ctx context.Context, tenantID uuid.UUID) (KPIs, error) {
	var k KPIs
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE converted),
		       COUNT(*) FILTER (WHERE NOT converted),
		       COALESCE(SUM(value_cents) FILTER (WHERE NOT converted), 0),
		       COALESCE(SUM(value_cents) FILTER (WHERE converted), 0)
		FROM leads
		WHERE tenant_id = $1 AND archived_at IS NULL`, tenantID).
		Scan(&k.TotalLeads, &k.ConvertedLeads, &k.OpenLeads, &k.ProjectedValueCents, &k.ConvertedValueCents)
	if err != nil {
		return KPIs{}, fmt.Errorf("dashboard kpis: %w", err)
	}
	return k, nil
}

var _ Repository = (*postgresRepository)(nil)
