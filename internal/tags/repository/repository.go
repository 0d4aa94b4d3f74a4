// Package repository provides Postgres persistence for tags.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/platform/apperr"
)

// Tag is a tenant-scoped label attachable to leads.
type Tag struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	Name      string    `db:"name"`
	Color     string    `db:"color"`
	CreatedAt time.Time `db:"created_at"`
}

// Repository combines all tag repository operations.
type Repository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Tag, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (Tag, error)
	Create(ctx context.Context, tenantID uuid.UUID, name, color string) (Tag, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, name, color *string) (Tag, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres tag repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const tagColumns = `id, tenant_id, name, color, created_at`

func scanTag(row pgx.Row) (Tag, error) {
	var t Tag
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tag{}, apperr.NotFound("tag not found")
		}
		return Tag{}, fmt.Errorf("scan tag: %w", err)
	}
	return t, nil
}

func (r *postgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tagColumns+`
		FROM tags
		WHERE tenant_id = $1
		ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *postgresRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Tag, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tagColumns+`
		FROM tags
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanTag(row)
}

func (r *postgresRepository) Create(ctx context.Context, tenantID uuid.UUID, name, color string) (Tag, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tags (tenant_id, name, color)
		VALUES ($1, $2, $3)
		RETURNING `+tagColumns, tenantID, name, color)
	t, err := scanTag(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Tag{}, apperr.Conflict("tag already exists")
		}
		return Tag{}, err
	}
	return t, nil
}

func (r *postgresRepository) Update(ctx context.Context, tenantID, id uuid.UUID, name, color *string) (Tag, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tags
		SET name  = COALESCE($3, name),
		    color = COALESCE($4, color)
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+tagColumns, tenantID, id, name, color)
	t, err := scanTag(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Tag{}, apperr.Conflict("tag already exists")
		}
		return Tag{}, err
	}
	return t, nil
}

func (r *postgresRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM tags
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperr.NotFound("tag not found")
	}
	return nil
}

func (r *postgresRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tags WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Repository = (*postgresRepository)(nil)
