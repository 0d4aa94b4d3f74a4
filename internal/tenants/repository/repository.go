// Package repository provides Postgres persistence for tenants (clinics).
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

// Tenant is a registered clinic.
type Tenant struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Phone     *string   `db:"phone"`
	Document  *string   `db:"document"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Registration is the atomic result of a clinic sign-up: the tenant row
// and its first admin user, created in one transaction.
type Registration struct {
	Tenant     Tenant
	AdminID    uuid.UUID
	AdminEmail string
}

// RegisterParams carries everything needed to create a clinic with its
// admin account.
type RegisterParams struct {
	ClinicName        string
	Phone             *string
	Document          *string
	AdminName         string
	AdminEmail        string
	AdminPasswordHash string
}

// Repository combines all tenant repository operations.
type Repository interface {
	Register(ctx context.Context, params RegisterParams) (Registration, error)
	GetByID(ctx context.Context, id uuid.UUID) (Tenant, error)
	Update(ctx context.Context, id uuid.UUID, name string, phone, document *string) (Tenant, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres tenant repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const tenantColumns = `id, name, phone, document, created_at, updated_at`

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Phone, &t.Document, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, apperr.NotFound("clinic not found")
		}
		return Tenant{}, fmt.Errorf("scan tenant: %w", err)
	}
	return t, nil
}

func (r *postgresRepository) Register(ctx context.Context, params RegisterParams) (Registration, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Registration{}, fmt.Errorf("begin register tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tenant, err := scanTenant(tx.QueryRow(ctx, `
		INSERT INTO tenants (name, phone, document)
		VALUES ($1, $2, $3)
		RETURNING `+tenantColumns, params.ClinicName, params.Phone, params.Document))
	if err != nil {
		return Registration{}, err
	}

	var adminID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO users (tenant_id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, 'admin')
		RETURNING id`, tenant.ID, params.AdminName, params.AdminEmail, params.AdminPasswordHash).Scan(&adminID)
	if err != nil {
		if isUniqueViolation(err) {
			return Registration{}, apperr.Conflict("email already registered")
		}
		return Registration{}, fmt.Errorf("create admin user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Registration{}, fmt.Errorf("commit register tx: %w", err)
	}

	return Registration{Tenant: tenant, AdminID: adminID, AdminEmail: params.AdminEmail}, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE id = $1`, id)
	return scanTenant(row)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, name string, phone, document *string) (Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tenants
		SET name = $2,
		    phone = COALESCE($3, phone),
		    document = COALESCE($4, document),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+tenantColumns, id, name, phone, document)
	return scanTenant(row)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Repository = (*postgresRepository)(nil)
