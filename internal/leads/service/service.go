// Package service provides business logic for leads.
package service

import (
	"context"

	"github.com/google/uuid"

	"medicrm_backend/internal/events"
	"medicrm_backend/internal/leads/repository"
	"medicrm_backend/internal/leads/transport"
	"medicrm_backend/internal/search"
	stagesrepo "medicrm_backend/internal/stages/repository"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/phone"
	"medicrm_backend/platform/sanitize"
)

// Service provides lead management over the kanban funnel.
type Service struct {
	repo     repository.Repository
	stages   stagesrepo.Repository
	bus      events.Bus
	searcher search.Searcher
	indexer  search.Indexer
	log      *logger.Logger
}

// New creates a new leads service. searcher and indexer may be nil, in
// which case search endpoints return empty results and indexing is a no-op.
func New(repo repository.Repository, stages stagesrepo.Repository, bus events.Bus, searcher search.Searcher, indexer search.Indexer, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		stages:   stages,
		bus:      bus,
		searcher: searcher,
		indexer:  indexer,
		log:      log,
	}
}

// List retrieves leads with optional filters.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	leads, err := s.repo.ListByTenant(ctx, tenantID, repository.ListFilters{
		StageID:         req.StageID,
		TagID:           req.TagID,
		IncludeArchived: req.IncludeArchived,
		Limit:           req.Limit,
		Offset:          req.Offset,
	})
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, l := range leads {
		items[i] = toResponse(l)
	}
	return transport.LeadListResponse{Leads: items, Total: len(items)}, nil
}

// Kanban returns the board view: every stage in position order with its
// active leads.
func (s *Service) Kanban(ctx context.Context, tenantID uuid.UUID) (transport.KanbanResponse, error) {
	stages, err := s.stages.ListByTenant(ctx, tenantID)
	if err != nil {
		return transport.KanbanResponse{}, err
	}
	leads, err := s.repo.ListByTenant(ctx, tenantID, repository.ListFilters{})
	if err != nil {
		return transport.KanbanResponse{}, err
	}

	byStage := make(map[uuid.UUID][]transport.LeadResponse)
	for _, l := range leads {
		byStage[l.StageID] = append(byStage[l.StageID], toResponse(l))
	}

	columns := make([]transport.KanbanColumn, len(stages))
	for i, st := range stages {
		col := transport.KanbanColumn{
			StageID:   st.ID,
			StageName: st.Name,
			Color:     st.Color,
			Leads:     byStage[st.ID],
		}
		if col.Leads == nil {
			col.Leads = []transport.LeadResponse{}
		}
		columns[i] = col
	}
	return transport.KanbanResponse{Columns: columns}, nil
}

// Get retrieves a single lead.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(lead), nil
}

// Create adds a lead. When no stage is given the lead lands in the
// first stage of the funnel.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	if req.ValueCents < 0 {
		return transport.LeadResponse{}, apperr.Validation("lead value must not be negative")
	}

	stageID, err := s.resolveStage(ctx, tenantID, req.StageID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.Create(ctx, repository.CreateParams{
		TenantID:          tenantID,
		Name:              sanitize.Text(req.Name),
		Phone:             normalizePhone(req.Phone),
		Email:             req.Email,
		StageID:           stageID,
		TagID:             req.TagID,
		ValueCents:        req.ValueCents,
		ServiceOfInterest: sanitize.TextPtr(req.ServiceOfInterest),
		AdName:            sanitize.TextPtr(req.AdName),
		Source:            req.Source,
		Notes:             sanitize.TextPtr(req.Notes),
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.log.Info("lead created", "id", lead.ID, "tenantId", tenantID, "stageId", stageID)
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  tenantID,
		Name:      lead.Name,
		Source:    derefString(lead.Source),
	})
	s.index(ctx, lead)

	return toResponse(lead), nil
}

// Update changes a lead's editable fields.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	if req.ValueCents != nil && *req.ValueCents < 0 {
		return transport.LeadResponse{}, apperr.Validation("lead value must not be negative")
	}

	var name *string
	if req.Name != nil {
		clean := sanitize.Text(*req.Name)
		name = &clean
	}
	lead, err := s.repo.Update(ctx, repository.UpdateParams{
		TenantID:          tenantID,
		ID:                id,
		Name:              name,
		Phone:             normalizePhone(req.Phone),
		Email:             req.Email,
		TagID:             req.TagID,
		ValueCents:        req.ValueCents,
		ServiceOfInterest: sanitize.TextPtr(req.ServiceOfInterest),
		Notes:             sanitize.TextPtr(req.Notes),
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadUpdated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  tenantID,
	})
	s.index(ctx, lead)

	return toResponse(lead), nil
}

// Move drags a lead to another stage. The target stage must belong to
// the same tenant.
func (s *Service) Move(ctx context.Context, tenantID, id uuid.UUID, movedBy uuid.UUID, req transport.MoveLeadRequest) (transport.LeadResponse, error) {
	exists, err := s.repo.StageExists(ctx, tenantID, req.StageID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !exists {
		return transport.LeadResponse{}, apperr.Validation("target stage does not belong to this tenant")
	}

	before, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.MoveToStage(ctx, tenantID, id, req.StageID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if before.StageID != lead.StageID {
		s.bus.Publish(ctx, events.LeadStageChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			TenantID:  tenantID,
			FromStage: before.StageID,
			ToStage:   lead.StageID,
			MovedByID: movedBy,
		})
	}
	return toResponse(lead), nil
}

// Convert flags or unflags a lead as converted.
func (s *Service) Convert(ctx context.Context, tenantID, id uuid.UUID, req transport.ConvertLeadRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.SetConverted(ctx, tenantID, id, req.Converted)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if req.Converted {
		s.bus.Publish(ctx, events.LeadConverted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			TenantID:  tenantID,
			Service:   derefString(lead.ServiceOfInterest),
		})
	}
	return toResponse(lead), nil
}

// Archive soft-deletes a lead.
func (s *Service) Archive(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, tenantID, id); err != nil {
		return err
	}
	if s.indexer != nil {
		if err := s.indexer.DeleteLead(ctx, id); err != nil {
			s.log.Warn("lead deindex failed", "id", id, "error", err)
		}
	}
	s.log.Info("lead archived", "id", id, "tenantId", tenantID)
	return nil
}

// Search runs full-text search over the tenant's leads.
func (s *Service) Search(ctx context.Context, tenantID uuid.UUID, req transport.SearchLeadsRequest) ([]search.Result, error) {
	if s.searcher == nil {
		return []search.Result{}, nil
	}
	return s.searcher.Search(ctx, tenantID, req.Query, req.Limit)
}

func (s *Service) resolveStage(ctx context.Context, tenantID uuid.UUID, stageID *uuid.UUID) (uuid.UUID, error) {
	if stageID != nil {
		exists, err := s.repo.StageExists(ctx, tenantID, *stageID)
		if err != nil {
			return uuid.UUID{}, err
		}
		if !exists {
			return uuid.UUID{}, apperr.Validation("stage does not belong to this tenant")
		}
		return *stageID, nil
	}

	stages, err := s.stages.ListByTenant(ctx, tenantID)
	if err != nil {
		return uuid.UUID{}, err
	}
	if len(stages) == 0 {
		return uuid.UUID{}, apperr.Validation("tenant has no stages")
	}
	return stages[0].ID, nil
}

func (s *Service) index(ctx context.Context, lead repository.Lead) {
	if s.indexer == nil {
		return
	}
	err := s.indexer.IndexLead(ctx, search.LeadRecord{
		ID:                lead.ID.String(),
		TenantID:          lead.TenantID.String(),
		Name:              lead.Name,
		Phone:             derefString(lead.Phone),
		Email:             derefString(lead.Email),
		ServiceOfInterest: derefString(lead.ServiceOfInterest),
		AdName:            derefString(lead.AdName),
	})
	if err != nil {
		s.log.Warn("lead index failed", "id", lead.ID, "error", err)
	}
}

func normalizePhone(raw *string) *string {
	if raw == nil || *raw == "" {
		return nil
	}
	normalized := phone.NormalizeE164(*raw)
	return &normalized
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toResponse(l repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                l.ID,
		Name:              l.Name,
		Phone:             l.Phone,
		Email:             l.Email,
		StageID:           l.StageID,
		TagID:             l.TagID,
		ValueCents:        l.ValueCents,
		Converted:         l.Converted,
		ServiceOfInterest: l.ServiceOfInterest,
		AdName:            l.AdName,
		Source:            l.Source,
		Notes:             l.Notes,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
		Archived:          l.ArchivedAt != nil,
	}
}
