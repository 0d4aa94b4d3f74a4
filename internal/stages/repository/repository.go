package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/platform/apperr"
)

const stageNotFoundMessage = "stage not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new stages repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const stageColumns = `id, tenant_id, name, color, position, created_at, updated_at`

func scanStage(row pgx.Row) (Stage, error) {
	var st Stage
	err := row.Scan(&st.ID, &st.TenantID, &st.Name, &st.Color, &st.Position, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// ListByTenant retrieves the tenant's stages ordered by position.
func (r *Repo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stages
		WHERE tenant_id = $1
		ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var stages []Stage
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// GetByID retrieves a stage by its ID.
func (r *Repo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stages
		WHERE id = $1 AND tenant_id = $2`

	st, err := scanStage(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound(stageNotFoundMessage)
		}
		return Stage{}, fmt.Errorf("get stage by id: %w", err)
	}
	return st, nil
}

// Create inserts a stage appended at position n for the tenant.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Stage, error) {
	query := `
		INSERT INTO stages (id, tenant_id, name, color, position)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM stages WHERE tenant_id = $2))
		RETURNING ` + stageColumns

	st, err := scanStage(r.pool.QueryRow(ctx, query, uuid.New(), params.TenantID, params.Name, params.Color))
	if err != nil {
		return Stage{}, fmt.Errorf("create stage: %w", err)
	}
	return st, nil
}

// Update changes a stage's name and/or color.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Stage, error) {
	query := `
		UPDATE stages
		SET name = COALESCE($3, name),
		    color = COALESCE($4, color),
		    updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + stageColumns

	st, err := scanStage(r.pool.QueryRow(ctx, query, params.ID, params.TenantID, params.Name, params.Color))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound(stageNotFoundMessage)
		}
		return Stage{}, fmt.Errorf("update stage: %w", err)
	}
	return st, nil
}

// Delete removes a stage and compacts the remaining positions back to [0..n-1].
func (r *Repo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete stage: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM stages WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(stageNotFoundMessage)
	}

	// Renumber survivors so positions stay a contiguous permutation.
	_, err = tx.Exec(ctx, `
		UPDATE stages s
		SET position = ranked.new_position, updated_at = now()
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY position) - 1 AS new_position
			FROM stages
			WHERE tenant_id = $1
		) ranked
		WHERE s.id = ranked.id AND s.position <> ranked.new_position`, tenantID)
	if err != nil {
		return fmt.Errorf("compact stage positions: %w", err)
	}

	return tx.Commit(ctx)
}

// CountByTenant returns the number of stages for a tenant.
func (r *Repo) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stages WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stages: %w", err)
	}
	return count, nil
}

// UpdatePosition persists a single stage's position (non-transactional variant).
func (r *Repo) UpdatePosition(ctx context.Context, tenantID, stageID uuid.UUID, position int) error {
	return updatePosition(ctx, r.pool, tenantID, stageID, position)
}

// InPositionTx runs fn against a transactional PositionWriter.
func (r *Repo) InPositionTx(ctx context.Context, fn func(PositionWriter) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("position tx: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&txPositionWriter{tx: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type txPositionWriter struct {
	tx pgx.Tx
}

func (w *txPositionWriter) UpdatePosition(ctx context.Context, tenantID, stageID uuid.UUID, position int) error {
	return updatePosition(ctx, w.tx, tenantID, stageID, position)
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func updatePosition(ctx context.Context, db execer, tenantID, stageID uuid.UUID, position int) error {
	tag, err := db.Exec(ctx, `
		UPDATE stages
		SET position = $3, updated_at = now()
		WHERE id = $2 AND tenant_id = $1`, tenantID, stageID, position)
	if err != nil {
		return fmt.Errorf("update stage position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(stageNotFoundMessage)
	}
	return nil
}
