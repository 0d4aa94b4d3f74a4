// Package repository provides Postgres persistence for users and
// refresh sessions.
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

// User is an authenticated member of a tenant.
type User struct {
	ID           uuid.UUID `db:"id"`
	TenantID     uuid.UUID `db:"tenant_id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"` // admin, agent
	CreatedAt    time.Time `db:"created_at"`
}

// Repository combines all auth repository operations.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	CreateUser(ctx context.Context, tenantID uuid.UUID, name, email, passwordHash, role string) (User, error)
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres auth repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const userColumns = `id, tenant_id, name, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (r *postgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1`, id)
	return scanUser(row)
}

func (r *postgresRepository) CreateUser(ctx context.Context, tenantID uuid.UUID, name, email, passwordHash, role string) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (tenant_id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns, tenantID, name, email, passwordHash, role)
	u, err := scanUser(row)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *postgresRepository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	var userID uuid.UUID
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash).Scan(&userID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.UUID{}, time.Time{}, apperr.NotFound("refresh token not found")
		}
		return uuid.UUID{}, time.Time{}, fmt.Errorf("get refresh token: %w", err)
	}
	return userID, expiresAt, nil
}

func (r *postgresRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *postgresRepository) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

var _ Repository = (*postgresRepository)(nil)
