// Package repository provides Postgres persistence for leads.
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

// Lead is a prospective patient moving through the kanban funnel.
// Leads are soft-archived, never hard-deleted.
type Lead struct {
	ID                uuid.UUID  `db:"id"`
	TenantID          uuid.UUID  `db:"tenant_id"`
	Name              string     `db:"name"`
	Phone             *string    `db:"phone"`
	Email             *string    `db:"email"`
	StageID           uuid.UUID  `db:"stage_id"`
	TagID             *uuid.UUID `db:"tag_id"`
	ValueCents        int64      `db:"value_cents"`
	Converted         bool       `db:"converted"`
	ServiceOfInterest *string    `db:"service_of_interest"`
	AdName            *string    `db:"ad_name"`
	Source            *string    `db:"source"`
	Notes             *string    `db:"notes"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	ArchivedAt        *time.Time `db:"archived_at"`
}

// CreateParams contains parameters for creating a lead.
type CreateParams struct {
	TenantID          uuid.UUID
	Name              string
	Phone             *string
	Email             *string
	StageID           uuid.UUID
	TagID             *uuid.UUID
	ValueCents        int64
	ServiceOfInterest *string
	AdName            *string
	Source            *string
	Notes             *string
}

// UpdateParams contains parameters for updating a lead. Nil fields are
// left unchanged.
type UpdateParams struct {
	TenantID          uuid.UUID
	ID                uuid.UUID
	Name              *string
	Phone             *string
	Email             *string
	TagID             *uuid.UUID
	ValueCents        *int64
	ServiceOfInterest *string
	Notes             *string
}

// ListFilters narrows ListByTenant.
type ListFilters struct {
	StageID         *uuid.UUID
	TagID           *uuid.UUID
	IncludeArchived bool
	Limit           int
	Offset          int
}

// Repository combines all lead repository operations.
type Repository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filters ListFilters) ([]Lead, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (Lead, error)
	Create(ctx context.Context, params CreateParams) (Lead, error)
	Update(ctx context.Context, params UpdateParams) (Lead, error)
	MoveToStage(ctx context.Context, tenantID, id, stageID uuid.UUID) (Lead, error)
	SetConverted(ctx context.Context, tenantID, id uuid.UUID, converted bool) (Lead, error)
	Archive(ctx context.Context, tenantID, id uuid.UUID) error
	StageExists(ctx context.Context, tenantID, stageID uuid.UUID) (bool, error)
	FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (Lead, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres lead repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const leadColumns = `id, tenant_id, name, phone, email, stage_id, tag_id, value_cents,
	converted, service_of_interest, ad_name, source, notes, created_at, updated_at, archived_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.TenantID, &l.Name, &l.Phone, &l.Email, &l.StageID, &l.TagID,
		&l.ValueCents, &l.Converted, &l.ServiceOfInterest, &l.AdName, &l.Source, &l.Notes,
		&l.CreatedAt, &l.UpdatedAt, &l.ArchivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound("lead not found")
		}
		return Lead{}, fmt.Errorf("scan lead: %w", err)
	}
	return l, nil
}

func (r *postgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, filters ListFilters) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1`
	args := []any{tenantID}
	argN := 2

	if !filters.IncludeArchived {
		query += ` AND archived_at IS NULL`
	}
	if filters.StageID != nil {
		query += fmt.Sprintf(` AND stage_id = $%d`, argN)
		args = append(args, *filters.StageID)
		argN++
	}
	if filters.TagID != nil {
		query += fmt.Sprintf(` AND tag_id = $%d`, argN)
		args = append(args, *filters.TagID)
		argN++
	}
	query += ` ORDER BY created_at DESC`
	if filters.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argN, argN+1)
		args = append(args, filters.Limit, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *postgresRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanLead(row)
}

func (r *postgresRepository) Create(ctx context.Context, params CreateParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (tenant_id, name, phone, email, stage_id, tag_id, value_cents,
			service_of_interest, ad_name, source, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+leadColumns,
		params.TenantID, params.Name, params.Phone, params.Email, params.StageID,
		params.TagID, params.ValueCents, params.ServiceOfInterest, params.AdName,
		params.Source, params.Notes)
	return scanLead(row)
}

func (r *postgresRepository) Update(ctx context.Context, params UpdateParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET name                = COALESCE($3, name),
		    phone               = COALESCE($4, phone),
		    email               = COALESCE($5, email),
		    tag_id              = COALESCE($6, tag_id),
		    value_cents         = COALESCE($7, value_cents),
		    service_of_interest = COALESCE($8, service_of_interest),
		    notes               = COALESCE($9, notes),
		    updated_at          = now()
		WHERE tenant_id = $1 AND id = $2 AND archived_at IS NULL
		RETURNING `+leadColumns,
		params.TenantID, params.ID, params.Name, params.Phone, params.Email,
		params.TagID, params.ValueCents, params.ServiceOfInterest, params.Notes)
	return scanLead(row)
}

func (r *postgresRepository) MoveToStage(ctx context.Context, tenantID, id, stageID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET stage_id = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND archived_at IS NULL
		RETURNING `+leadColumns, tenantID, id, stageID)
	return scanLead(row)
}

func (r *postgresRepository) SetConverted(ctx context.Context, tenantID, id uuid.UUID, converted bool) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET converted = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND archived_at IS NULL
		RETURNING `+leadColumns, tenantID, id, converted)
	return scanLead(row)
}

func (r *postgresRepository) Archive(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET archived_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND archived_at IS NULL`, tenantID, id)
	if err != nil {
		return fmt.Errorf("archive lead: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

func (r *postgresRepository) StageExists(ctx context.Context, tenantID, stageID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM stages WHERE tenant_id = $1 AND id = $2)`,
		tenantID, stageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check stage: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND phone = $2 AND archived_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, tenantID, phone)
	return scanLead(row)
}

var _ Repository = (*postgresRepository)(nil)
