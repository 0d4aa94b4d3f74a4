// Package repository provides Postgres persistence for intake tokens
// and captured webhook events.
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

// Token grants an external form or ad platform access to the intake
// endpoint of one tenant. Only the SHA-256 hash is stored.
type Token struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	Label     string    `db:"label"`
	TokenHash string    `db:"token_hash"`
	CreatedAt time.Time `db:"created_at"`
}

// Event is a captured intake submission, kept verbatim for replay.
type Event struct {
	ID           uuid.UUID  `db:"id"`
	TenantID     uuid.UUID  `db:"tenant_id"`
	SourceDomain string     `db:"source_domain"`
	Payload      []byte     `db:"payload"`
	LeadID       *uuid.UUID `db:"lead_id"`
	IsIncomplete bool       `db:"is_incomplete"`
	CreatedAt    time.Time  `db:"created_at"`
}

// Repository combines all webhook repository operations.
type Repository interface {
	CreateToken(ctx context.Context, tenantID uuid.UUID, label, tokenHash string) (Token, error)
	ListTokens(ctx context.Context, tenantID uuid.UUID) ([]Token, error)
	DeleteToken(ctx context.Context, tenantID, id uuid.UUID) error
	ResolveTenant(ctx context.Context, tokenHash string) (uuid.UUID, error)
	CreateEvent(ctx context.Context, tenantID uuid.UUID, sourceDomain string, payload []byte, leadID *uuid.UUID, incomplete bool) (Event, error)
	GetEvent(ctx context.Context, tenantID, id uuid.UUID) (Event, error)
	SetEventLead(ctx context.Context, id uuid.UUID, leadID uuid.UUID, incomplete bool) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres webhook repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) CreateToken(ctx context.Context, tenantID uuid.UUID, label, tokenHash string) (Token, error) {
	var t Token
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_tokens (tenant_id, label, token_hash)
		VALUES ($1, $2, $3)
		RETURNING id, tenant_id, label, token_hash, created_at`,
		tenantID, label, tokenHash).Scan(&t.ID, &t.TenantID, &t.Label, &t.TokenHash, &t.CreatedAt)
	if err != nil {
		return Token{}, fmt.Errorf("create webhook token: %w", err)
	}
	return t, nil
}

func (r *postgresRepository) ListTokens(ctx context.Context, tenantID uuid.UUID) ([]Token, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, label, token_hash, created_at
		FROM webhook_tokens
		WHERE tenant_id = $1
		ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list webhook tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]Token, 0)
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Label, &t.TokenHash, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *postgresRepository) DeleteToken(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM webhook_tokens
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete webhook token: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperr.NotFound("webhook token not found")
	}
	return nil
}

func (r *postgresRepository) ResolveTenant(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id
		FROM webhook_tokens
		WHERE token_hash = $1`, tokenHash).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.UUID{}, apperr.Unauthorized("unknown intake token")
		}
		return uuid.UUID{}, fmt.Errorf("resolve intake token: %w", err)
	}
	return tenantID, nil
}

func (r *postgresRepository) CreateEvent(ctx context.Context, tenantID uuid.UUID, sourceDomain string, payload []byte, leadID *uuid.UUID, incomplete bool) (Event, error) {
	var e Event
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_events (tenant_id, source_domain, payload, lead_id, is_incomplete)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, tenant_id, source_domain, payload, lead_id, is_incomplete, created_at`,
		tenantID, sourceDomain, payload, leadID, incomplete).
		Scan(&e.ID, &e.TenantID, &e.SourceDomain, &e.Payload, &e.LeadID, &e.IsIncomplete, &e.CreatedAt)
	if err != nil {
		return Event{}, fmt.Errorf("create webhook event: %w", err)
	}
	return e, nil
}

func (r *postgresRepository) GetEvent(ctx context.Context, tenantID, id uuid.UUID) (Event, error) {
	var e Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, source_domain, payload, lead_id, is_incomplete, created_at
		FROM webhook_events
		WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&e.ID, &e.TenantID, &e.SourceDomain, &e.Payload, &e.LeadID, &e.IsIncomplete, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, apperr.NotFound("webhook event not found")
		}
		return Event{}, fmt.Errorf("get webhook event: %w", err)
	}
	return e, nil
}

func (r *postgresRepository) SetEventLead(ctx context.Context, id uuid.UUID, leadID uuid.UUID, incomplete bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE webhook_events
		SET lead_id = $2, is_incomplete = $3
		WHERE id = $1`, id, leadID, incomplete)
	if err != nil {
		return fmt.Errorf("update webhook event: %w", err)
	}
	return nil
}

var _ Repository = (*postgresRepository)(nil)
