package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	meili "github.com/meilisearch/meilisearch-go"

	"medicrm_backend/platform/logger"
)

const leadsIndex = "medicrm_leads"

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	log     *logger.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the leads index.
// The client starts unhealthy if the initial connection fails and keeps
// probing in the background; callers should fall back while unhealthy.
func NewMeili(url, apiKey string, log *logger.Logger) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		log:    log,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        leadsIndex,
		PrimaryKey: "id",
	}); err != nil {
		m.log.Debug("create leads index", "error", err)
	}

	index := m.client.Index(leadsIndex)
	filterable := []interface{}{"tenantId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.log.Warn("update filterable attributes failed", "error", err)
	}
	searchable := []string{"name", "phone", "email", "serviceOfInterest", "adName"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.log.Warn("update searchable attributes failed", "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the leads index filtered to one tenant.
func (m *Meili) Search(_ context.Context, tenantID uuid.UUID, text string, limit int) ([]Result, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}
	if limit <= 0 {
		limit = 20
	}

	resp, err := m.client.Index(leadsIndex).Search(text, &meili.SearchRequest{
		Limit:  int64(limit),
		Filter: fmt.Sprintf("tenantId = %q", tenantID.String()),
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		var record LeadRecord
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		id, err := uuid.Parse(record.ID)
		if err != nil {
			continue
		}
		results = append(results, Result{
			ID:    id,
			Name:  record.Name,
			Phone: record.Phone,
			Email: record.Email,
		})
	}
	return results, nil
}

// IndexLead upserts one lead document.
func (m *Meili) IndexLead(_ context.Context, record LeadRecord) error {
	if !m.healthy.Load() {
		return fmt.Errorf("meilisearch unhealthy")
	}
	if _, err := m.client.Index(leadsIndex).AddDocuments([]LeadRecord{record}, nil); err != nil {
		return fmt.Errorf("index lead: %w", err)
	}
	return nil
}

// DeleteLead removes one lead document.
func (m *Meili) DeleteLead(_ context.Context, id uuid.UUID) error {
	if !m.healthy.Load() {
		return fmt.Errorf("meilisearch unhealthy")
	}
	if _, err := m.client.Index(leadsIndex).DeleteDocument(id.String(), nil); err != nil {
		return fmt.Errorf("delete lead from index: %w", err)
	}
	return nil
}

var (
	_ Searcher = (*Meili)(nil)
	_ Indexer  = (*Meili)(nil)
)
