package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"medicrm_backend/internal/events"
	"medicrm_backend/internal/stages/repository"
	"medicrm_backend/internal/stages/transport"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

// Service provides business logic for kanban stages, including the
// reorder coordinator.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger

	// reorderMu is the coordinator's single-flight guard: a second reorder
	// while one is in flight is rejected with Conflict instead of trusting
	// caller discipline.
	reorderMu sync.Mutex
}

// New creates a new stages service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// List retrieves the tenant's stages ordered by position.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) (transport.StageListResponse, error) {
	stages, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return transport.StageListResponse{}, err
	}
	return toListResponse(stages), nil
}

// Create adds a new stage at the end of the tenant's pipeline.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateStageRequest) (transport.StageResponse, error) {
	st, err := s.repo.Create(ctx, repository.CreateParams{
		TenantID: tenantID,
		Name:     req.Name,
		Color:    req.Color,
	})
	if err != nil {
		return transport.StageResponse{}, err
	}

	s.log.Info("stage created", "id", st.ID, "tenantId", tenantID, "name", st.Name, "position", st.Position)
	return toResponse(st), nil
}

// Update changes a stage's name and/or color.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req transport.UpdateStageRequest) (transport.StageResponse, error) {
	st, err := s.repo.Update(ctx, repository.UpdateParams{
		TenantID: tenantID,
		ID:       id,
		Name:     req.Name,
		Color:    req.Color,
	})
	if err != nil {
		return transport.StageResponse{}, err
	}
	return toResponse(st), nil
}

// Delete removes a stage. Remaining positions are compacted by the repository.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.log.Info("stage deleted", "id", id, "tenantId", tenantID)
	return nil
}

// Reorder applies a drag-and-drop move to the tenant's stage list and
// persists the new order.
//
// Splice semantics: the element at sourceIndex is removed and reinserted at
// destinationIndex (a move, not a swap), then every element's position is
// reassigned to its new 0-based index. Only rows whose position actually
// changed are written, sequentially in list order, inside one transaction:
// the first failure aborts the remaining updates and rolls everything back.
func (s *Service) Reorder(ctx context.Context, tenantID uuid.UUID, req transport.ReorderRequest) (transport.StageListResponse, error) {
	if !s.reorderMu.TryLock() {
		return transport.StageListResponse{}, apperr.Conflict("a reorder is already in progress")
	}
	defer s.reorderMu.Unlock()

	stages, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return transport.StageListResponse{}, err
	}

	if req.SourceIndex < 0 || req.SourceIndex >= len(stages) {
		return transport.StageListResponse{}, apperr.Validation("source index out of range")
	}
	if req.DestinationIndex < 0 || req.DestinationIndex >= len(stages) {
		return transport.StageListResponse{}, apperr.Validation("destination index out of range")
	}

	reordered := splice(stages, req.SourceIndex, req.DestinationIndex)

	err = s.repo.InPositionTx(ctx, func(w repository.PositionWriter) error {
		for i := range reordered {
			if reordered[i].Position == i {
				continue
			}
			if err := w.UpdatePosition(ctx, tenantID, reordered[i].ID, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("stage reorder failed", "tenantId", tenantID, "error", err)
		return transport.StageListResponse{}, err
	}

	stageIDs := make([]uuid.UUID, len(reordered))
	for i := range reordered {
		reordered[i].Position = i
		stageIDs[i] = reordered[i].ID
	}

	s.log.Info("stages reordered",
		"tenantId", tenantID,
		"sourceIndex", req.SourceIndex,
		"destinationIndex", req.DestinationIndex,
	)
	s.bus.Publish(ctx, events.StagesReordered{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  tenantID,
		StageIDs:  stageIDs,
	})

	return toListResponse(reordered), nil
}

// splice removes the element at source and reinserts it at destination,
// preserving the relative order of everything else.
func splice(stages []repository.Stage, source, destination int) []repository.Stage {
	result := make([]repository.Stage, 0, len(stages))
	result = append(result, stages[:source]...)
	result = append(result, stages[source+1:]...)

	result = append(result, repository.Stage{})
	copy(result[destination+1:], result[destination:])
	result[destination] = stages[source]

	return result
}

func toResponse(st repository.Stage) transport.StageResponse {
	return transport.StageResponse{
		ID:        st.ID,
		Name:      st.Name,
		Color:     st.Color,
		Position:  st.Position,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
}

func toListResponse(stages []repository.Stage) transport.StageListResponse {
	items := make([]transport.StageResponse, len(stages))
	for i, st := range stages {
		items[i] = toResponse(st)
	}
	return transport.StageListResponse{Stages: items, Total: len(items)}
}
