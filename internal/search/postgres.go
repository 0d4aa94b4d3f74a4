package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Searcher with an ILIKE scan over the leads table.
// Used when Meilisearch is not configured or unhealthy.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates the Postgres fallback searcher.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Healthy always returns true: if Postgres is down the whole app is down.
func (p *Postgres) Healthy() bool {
	return true
}

// Search matches the text against name, phone, email and service of
// interest, case-insensitively.
func (p *Postgres) Search(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + text + "%"
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, COALESCE(phone, ''), COALESCE(email, '')
		FROM leads
		WHERE tenant_id = $1
		  AND archived_at IS NULL
		  AND (name ILIKE $2
		    OR phone ILIKE $2
		    OR email ILIKE $2
		    OR service_of_interest ILIKE $2
		    OR ad_name ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3`, tenantID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search leads: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Name, &r.Phone, &r.Email); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

var _ Searcher = (*Postgres)(nil)
