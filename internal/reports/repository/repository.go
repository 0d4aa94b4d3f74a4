// Package repository provides Postgres persistence for AI management
// reports.
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

// Report statuses.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Report is an AI-generated management report.
type Report struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	Period    string    `db:"period"`
	Status    string    `db:"status"`
	Content   *string   `db:"content"`
	Error     *string   `db:"error"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Repository combines all report repository operations.
type Repository interface {
	Create(ctx context.Context, tenantID uuid.UUID, period string) (Report, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (Report, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Report, error)
	SetRunning(ctx context.Context, id uuid.UUID) error
	SetDone(ctx context.Context, id uuid.UUID, content string) error
	SetFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres report repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const reportColumns = `id, tenant_id, period, status, content, error, created_at, updated_at`

func scanReport(row pgx.Row) (Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.TenantID, &r.Period, &r.Status, &r.Content, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Report{}, apperr.NotFound("report not found")
		}
		return Report{}, fmt.Errorf("scan report: %w", err)
	}
	return r, nil
}

func (r *postgresRepository) Create(ctx context.Context, tenantID uuid.UUID, period string) (Report, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reports (tenant_id, period, status)
		VALUES ($1, $2, $3)
		RETURNING `+reportColumns, tenantID, period, StatusQueued)
	return scanReport(row)
}

func (r *postgresRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Report, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanReport(row)
}

func (r *postgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Report, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE tenant_id = $1
		ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *postgresRepository) SetRunning(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, StatusRunning, nil, nil)
}

func (r *postgresRepository) SetDone(ctx context.Context, id uuid.UUID, content string) error {
	return r.setStatus(ctx, id, StatusDone, &content, nil)
}

func (r *postgresRepository) SetFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setStatus(ctx, id, StatusFailed, nil, &reason)
}

func (r *postgresRepository) setStatus(ctx context.Context, id uuid.UUID, status string, content, reason *string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE reports
		SET status = $2,
		    content = COALESCE($3, content),
		    error = $4,
		    updated_at = now()
		WHERE id = $1`, id, status, content, reason)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperr.NotFound("report not found")
	}
	return nil
}

var _ Repository = (*postgresRepository)(nil)
