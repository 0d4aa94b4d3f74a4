package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stage is a named kanban column a lead occupies.
// Positions within one tenant are a contiguous permutation of [0..n-1].
type Stage struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	Name      string    `db:"name"`
	Color     *string   `db:"color"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CreateParams contains parameters for creating a stage.
// The new stage is appended at position n.
type CreateParams struct {
	TenantID uuid.UUID
	Name     string
	Color    *string
}

// UpdateParams contains parameters for updating a stage's attributes.
// Position is owned by the reorder flow and is not updatable here.
type UpdateParams struct {
	TenantID uuid.UUID
	ID       uuid.UUID
	Name     *string
	Color    *string
}

// PositionWriter persists a single stage's position.
// The external contract is per-row: no bulk variant is assumed.
type PositionWriter interface {
	UpdatePosition(ctx context.Context, tenantID, stageID uuid.UUID, position int) error
}

// Repository combines all stage repository operations.
type Repository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Stage, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (Stage, error)
	Create(ctx context.Context, params CreateParams) (Stage, error)
	Update(ctx context.Context, params UpdateParams) (Stage, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error)

	PositionWriter

	// InPositionTx runs fn against a transactional PositionWriter.
	// Writes issued by fn are applied in issue order and committed
	// atomically; fn returning an error rolls everything back.
	InPositionTx(ctx context.Context, fn func(PositionWriter) error) error
}
