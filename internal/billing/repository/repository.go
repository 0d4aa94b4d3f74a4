// Package repository provides Postgres persistence for plans and
// subscriptions.
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

// Subscription statuses.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusPastDue   = "past_due"
	StatusCancelled = "cancelled"
)

// Plan is a purchasable subscription plan.
type Plan struct {
	ID         uuid.UUID `db:"id"`
	Name       string    `db:"name"`
	PriceCents int64     `db:"price_cents"`
	Cycle      string    `db:"cycle"` // MONTHLY, YEARLY
	CreatedAt  time.Time `db:"created_at"`
}

// Subscription ties a tenant to a plan and the provider's records.
type Subscription struct {
	ID                     uuid.UUID `db:"id"`
	TenantID               uuid.UUID `db:"tenant_id"`
	PlanID                 uuid.UUID `db:"plan_id"`
	ProviderCustomerID     string    `db:"provider_customer_id"`
	ProviderSubscriptionID string    `db:"provider_subscription_id"`
	Status                 string    `db:"status"`
	CreatedAt              time.Time `db:"created_at"`
	UpdatedAt              time.Time `db:"updated_at"`
}

// Repository combines all billing repository operations.
type Repository interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (Plan, error)
	CreateSubscription(ctx context.Context, tenantID, planID uuid.UUID, customerID, subscriptionID, status string) (Subscription, error)
	GetSubscriptionByTenant(ctx context.Context, tenantID uuid.UUID) (Subscription, error)
	GetSubscriptionByProviderID(ctx context.Context, providerSubscriptionID string) (Subscription, error)
	SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status string) (Subscription, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres billing repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const subscriptionColumns = `id, tenant_id, plan_id, provider_customer_id, provider_subscription_id, status, created_at, updated_at`

func scanSubscription(row pgx.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.TenantID, &s.PlanID, &s.ProviderCustomerID, &s.ProviderSubscriptionID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, apperr.NotFound("subscription not found")
		}
		return Subscription{}, fmt.Errorf("scan subscription: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price_cents, cycle, created_at
		FROM plans
		ORDER BY price_cents`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := make([]Plan, 0)
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Cycle, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *postgresRepository) GetPlan(ctx context.Context, id uuid.UUID) (Plan, error) {
	var p Plan
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, price_cents, cycle, created_at
		FROM plans
		WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.PriceCents, &p.Cycle, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, apperr.NotFound("plan not found")
		}
		return Plan{}, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) CreateSubscription(ctx context.Context, tenantID, planID uuid.UUID, customerID, subscriptionID, status string) (Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (tenant_id, plan_id, provider_customer_id, provider_subscription_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+subscriptionColumns, tenantID, planID, customerID, subscriptionID, status)
	return scanSubscription(row)
}

func (r *postgresRepository) GetSubscriptionByTenant(ctx context.Context, tenantID uuid.UUID) (Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, tenantID)
	return scanSubscription(row)
}

func (r *postgresRepository) GetSubscriptionByProviderID(ctx context.Context, providerSubscriptionID string) (Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE provider_subscription_id = $1`, providerSubscriptionID)
	return scanSubscription(row)
}

func (r *postgresRepository) SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status string) (Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE subscriptions
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+subscriptionColumns, id, status)
	return scanSubscription(row)
}

var _ Repository = (*postgresRepository)(nil)
