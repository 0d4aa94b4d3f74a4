package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"medicrm_backend/internal/events"
	"medicrm_backend/internal/leads/repository"
	"medicrm_backend/internal/leads/transport"
	stagesrepo "medicrm_backend/internal/stages/repository"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

type fakeLeadRepo struct {
	leads    map[uuid.UUID]repository.Lead
	stageIDs map[uuid.UUID]bool
}

func newFakeLeadRepo(stageIDs ...uuid.UUID) *fakeLeadRepo {
	r := &fakeLeadRepo{
		leads:    make(map[uuid.UUID]repository.Lead),
		stageIDs: make(map[uuid.UUID]bool),
	}
	for _, id := range stageIDs {
		r.stageIDs[id] = true
	}
	return r
}

func (r *fakeLeadRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, filters repository.ListFilters) ([]repository.Lead, error) {
	var out []repository.Lead
	for _, l := range r.leads {
		if l.TenantID != tenantID {
			continue
		}
		if !filters.IncludeArchived && l.ArchivedAt != nil {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeLeadRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (repository.Lead, error) {
	l, ok := r.leads[id]
	if !ok || l.TenantID != tenantID {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return l, nil
}

func (r *fakeLeadRepo) Create(_ context.Context, params repository.CreateParams) (repository.Lead, error) {
	l := repository.Lead{
		ID:                uuid.New(),
		TenantID:          params.TenantID,
		Name:              params.Name,
		Phone:             params.Phone,
		Email:             params.Email,
		StageID:           params.StageID,
		TagID:             params.TagID,
		ValueCents:        params.ValueCents,
		ServiceOfInterest: params.ServiceOfInterest,
		AdName:            params.AdName,
		Source:            params.Source,
		Notes:             params.Notes,
	}
	r.leads[l.ID] = l
	return l, nil
}

func (r *fakeLeadRepo) Update(_ context.Context, params repository.UpdateParams) (repository.Lead, error) {
	l, ok := r.leads[params.ID]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if params.Name != nil {
		l.Name = *params.Name
	}
	if params.Phone != nil {
		l.Phone = params.Phone
	}
	if params.ValueCents != nil {
		l.ValueCents = *params.ValueCents
	}
	r.leads[params.ID] = l
	return l, nil
}

func (r *fakeLeadRepo) MoveToStage(_ context.Context, tenantID, id, stageID uuid.UUID) (repository.Lead, error) {
	l, ok := r.leads[id]
	if !ok || l.TenantID != tenantID {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	l.StageID = stageID
	r.leads[id] = l
	return l, nil
}

func (r *fakeLeadRepo) SetConverted(_ context.Context, tenantID, id uuid.UUID, converted bool) (repository.Lead, error) {
	l, ok := r.leads[id]
	if !ok || l.TenantID != tenantID {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	l.Converted = converted
	r.leads[id] = l
	return l, nil
}

func (r *fakeLeadRepo) Archive(_ context.Context, tenantID, id uuid.UUID) error {
	l, ok := r.leads[id]
	if !ok || l.TenantID != tenantID {
		return apperr.NotFound("lead not found")
	}
	now := l.CreatedAt
	l.ArchivedAt = &now
	r.leads[id] = l
	return nil
}

func (r *fakeLeadRepo) StageExists(_ context.Context, _, stageID uuid.UUID) (bool, error) {
	return r.stageIDs[stageID], nil
}

func (r *fakeLeadRepo) FindByPhone(_ context.Context, tenantID uuid.UUID, phone string) (repository.Lead, error) {
	for _, l := range r.leads {
		if l.TenantID == tenantID && l.Phone != nil && *l.Phone == phone {
			return l, nil
		}
	}
	return repository.Lead{}, apperr.NotFound("lead not found")
}

var _ repository.Repository = (*fakeLeadRepo)(nil)

// fakeStageRepo satisfies the subset of stage operations the lead
// service touches.
type fakeStageRepo struct {
	stages []stagesrepo.Stage
}

func (r *fakeStageRepo) ListByTenant(_ context.Context, _ uuid.UUID) ([]stagesrepo.Stage, error) {
	return r.stages, nil
}

func (r *fakeStageRepo) GetByID(_ context.Context, _, _ uuid.UUID) (stagesrepo.Stage, error) {
	return stagesrepo.Stage{}, apperr.NotFound("stage not found")
}

func (r *fakeStageRepo) Create(_ context.Context, _ stagesrepo.CreateParams) (stagesrepo.Stage, error) {
	return stagesrepo.Stage{}, nil
}

func (r *fakeStageRepo) Update(_ context.Context, _ stagesrepo.UpdateParams) (stagesrepo.Stage, error) {
	return stagesrepo.Stage{}, nil
}

func (r *fakeStageRepo) Delete(_ context.Context, _, _ uuid.UUID) error { return nil }

func (r *fakeStageRepo) CountByTenant(_ context.Context, _ uuid.UUID) (int, error) {
	return len(r.stages), nil
}

func (r *fakeStageRepo) UpdatePosition(_ context.Context, _, _ uuid.UUID, _ int) error { return nil }

func (r *fakeStageRepo) InPositionTx(_ context.Context, fn func(stagesrepo.PositionWriter) error) error {
	return fn(r)
}

var _ stagesrepo.Repository = (*fakeStageRepo)(nil)

type dropBus struct{}

func (dropBus) Publish(context.Context, events.Event) {}

func (dropBus) PublishSync(context.Context, events.Event) error { return nil }

func (dropBus) Subscribe(string, events.Handler) {}

func newLeadService(stages ...stagesrepo.Stage) (*Service, *fakeLeadRepo) {
	ids := make([]uuid.UUID, len(stages))
	for i, st := range stages {
		ids[i] = st.ID
	}
	repo := newFakeLeadRepo(ids...)
	svc := New(repo, &fakeStageRepo{stages: stages}, dropBus{}, nil, nil, logger.New("test"))
	return svc, repo
}

func testStage(name string, position int) stagesrepo.Stage {
	return stagesrepo.Stage{ID: uuid.New(), Name: name, Position: position}
}

func TestCreateDefaultsToFirstStage(t *testing.T) {
	first := testStage("Novo", 0)
	second := testStage("Contato", 1)
	svc, _ := newLeadService(first, second)
	tenantID := uuid.New()

	lead, err := svc.Create(context.Background(), tenantID, transport.CreateLeadRequest{Name: "Maria"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if lead.StageID != first.ID {
		t.Fatalf("expected lead in first stage, got %s", lead.StageID)
	}
}

func TestCreateNormalizesPhone(t *testing.T) {
	svc, _ := newLeadService(testStage("Novo", 0))
	tenantID := uuid.New()

	raw := "(11) 98765-4321"
	lead, err := svc.Create(context.Background(), tenantID, transport.CreateLeadRequest{
		Name:  "João",
		Phone: &raw,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if lead.Phone == nil || *lead.Phone != "+5511987654321" {
		t.Fatalf("phone not normalized to E.164: %v", lead.Phone)
	}
}

func TestCreateRejectsNegativeValue(t *testing.T) {
	svc, _ := newLeadService(testStage("Novo", 0))

	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateLeadRequest{
		Name:       "Teste",
		ValueCents: -100,
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateSanitizesName(t *testing.T) {
	svc, _ := newLeadService(testStage("Novo", 0))

	lead, err := svc.Create(context.Background(), uuid.New(), transport.CreateLeadRequest{
		Name: "<b>Ana</b>",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if lead.Name != "Ana" {
		t.Fatalf("name not sanitized: %q", lead.Name)
	}
}

func TestMoveRejectsForeignStage(t *testing.T) {
	stage := testStage("Novo", 0)
	svc, _ := newLeadService(stage)
	tenantID := uuid.New()

	lead, err := svc.Create(context.Background(), tenantID, transport.CreateLeadRequest{Name: "Maria"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.Move(context.Background(), tenantID, lead.ID, uuid.New(), transport.MoveLeadRequest{
		StageID: uuid.New(), // not one of the tenant's stages
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for foreign stage, got %v", err)
	}
}

func TestKanbanGroupsLeadsByStage(t *testing.T) {
	first := testStage("Novo", 0)
	second := testStage("Contato", 1)
	svc, _ := newLeadService(first, second)
	tenantID := uuid.New()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), tenantID, transport.CreateLeadRequest{
			Name:    "Lead",
			StageID: &first.ID,
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	board, err := svc.Kanban(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("kanban failed: %v", err)
	}
	if len(board.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(board.Columns))
	}
	if len(board.Columns[0].Leads) != 3 {
		t.Fatalf("expected 3 leads in first column, got %d", len(board.Columns[0].Leads))
	}
	if board.Columns[1].Leads == nil || len(board.Columns[1].Leads) != 0 {
		t.Fatalf("empty column should be an empty slice, got %v", board.Columns[1].Leads)
	}
}

func TestArchiveHidesLeadFromList(t *testing.T) {
	stage := testStage("Novo", 0)
	svc, _ := newLeadService(stage)
	tenantID := uuid.New()

	lead, _ := svc.Create(context.Background(), tenantID, transport.CreateLeadRequest{Name: "Maria"})
	if err := svc.Archive(context.Background(), tenantID, lead.ID); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	result, err := svc.List(context.Background(), tenantID, transport.ListLeadsRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("archived lead still listed: %d", result.Total)
	}
}
