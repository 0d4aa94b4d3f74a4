package search

import (
	"context"

	"github.com/google/uuid"
)

// Fallback routes searches to the primary backend while it is healthy
// and to the secondary otherwise.
type Fallback struct {
	primary   Searcher
	secondary Searcher
}

// NewFallback wires a primary searcher with a fallback.
func NewFallback(primary, secondary Searcher) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// Healthy reports whether either backend can serve queries.
func (f *Fallback) Healthy() bool {
	return f.primary.Healthy() || f.secondary.Healthy()
}

// Search tries the primary backend first; any error or an unhealthy
// primary falls through to the secondary.
func (f *Fallback) Search(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]Result, error) {
	if f.primary.Healthy() {
		results, err := f.primary.Search(ctx, tenantID, text, limit)
		if err == nil {
			return results, nil
		}
	}
	return f.secondary.Search(ctx, tenantID, text, limit)
}

var _ Searcher = (*Fallback)(nil)
