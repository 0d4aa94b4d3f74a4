// Package search provides lead full-text search behind a narrow
// interface: Meilisearch when configured, a Postgres ILIKE scan as
// fallback.
package search

import (
	"context"

	"github.com/google/uuid"
)

// LeadRecord is the data indexed per lead.
type LeadRecord struct {
	ID                string `json:"id"`
	TenantID          string `json:"tenantId"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	ServiceOfInterest string `json:"serviceOfInterest"`
	AdName            string `json:"adName"`
}

// Result is a single search hit.
type Result struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
	Email string    `json:"email,omitempty"`
}

// Searcher executes lead searches scoped to one tenant.
type Searcher interface {
	Search(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]Result, error)
	Healthy() bool
}

// Indexer pushes leads into the search index. Implementations must be
// safe to call from request paths; failures are logged, not surfaced.
type Indexer interface {
	IndexLead(ctx context.Context, record LeadRecord) error
	DeleteLead(ctx context.Context, id uuid.UUID) error
}
