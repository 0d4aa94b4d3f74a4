// Package repository provides Postgres persistence for appointments.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/platform/apperr"
)

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Appointment is a scheduled consultation for a lead.
type Appointment struct {
	ID         uuid.UUID  `db:"id"`
	TenantID   uuid.UUID  `db:"tenant_id"`
	LeadID     *uuid.UUID `db:"lead_id"`
	Title      string     `db:"title"`
	Status     string     `db:"status"`
	StartsAt   time.Time  `db:"starts_at"`
	EndsAt     *time.Time `db:"ends_at"`
	Notes      *string    `db:"notes"`
	ValueCents int64      `db:"value_cents"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// CreateParams carries fields for a new appointment.
type CreateParams struct {
	TenantID   uuid.UUID
	LeadID     *uuid.UUID
	Title      string
	StartsAt   time.Time
	EndsAt     *time.Time
	Notes      *string
	ValueCents int64
}

// UpdateParams carries editable appointment fields. Nil means unchanged.
type UpdateParams struct {
	Title      *string
	StartsAt   *time.Time
	EndsAt     *time.Time
	Notes      *string
	ValueCents *int64
}

// Repository combines all appointment repository operations.
type Repository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Appointment, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (Appointment, error)
	Create(ctx context.Context, params CreateParams) (Appointment, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, params UpdateParams) (Appointment, error)
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (Appointment, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres appointment repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const appointmentColumns = `id, tenant_id, lead_id, title, status, starts_at, ends_at, notes, value_cents, created_at, updated_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.TenantID, &a.LeadID, &a.Title, &a.Status, &a.StartsAt, &a.EndsAt, &a.Notes, &a.ValueCents, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, apperr.NotFound("appointment not found")
		}
		return Appointment{}, fmt.Errorf("scan appointment: %w", err)
	}
	return a, nil
}

func (r *postgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
		  AND starts_at >= $2
		  AND starts_at < $3
		ORDER BY starts_at`, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

func (r *postgresRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanAppointment(row)
}

func (r *postgresRepository) Create(ctx context.Context, params CreateParams) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (tenant_id, lead_id, title, status, starts_at, ends_at, notes, value_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+appointmentColumns,
		params.TenantID, params.LeadID, params.Title, StatusScheduled,
		params.StartsAt, params.EndsAt, params.Notes, params.ValueCents)
	return scanAppointment(row)
}

func (r *postgresRepository) Update(ctx context.Context, tenantID, id uuid.UUID, params UpdateParams) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET title = COALESCE($3, title),
		    starts_at = COALESCE($4, starts_at),
		    ends_at = COALESCE($5, ends_at),
		    notes = COALESCE($6, notes),
		    value_cents = COALESCE($7, value_cents),
		    updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+appointmentColumns,
		tenantID, id, params.Title, params.StartsAt, params.EndsAt, params.Notes, params.ValueCents)
	return scanAppointment(row)
}

func (r *postgresRepository) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+appointmentColumns, tenantID, id, status)
	return scanAppointment(row)
}

func (r *postgresRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM appointments
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

var _ Repository = (*postgresRepository)(nil)
