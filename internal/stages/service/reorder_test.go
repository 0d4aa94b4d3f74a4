package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"medicrm_backend/internal/events"
	"medicrm_backend/internal/stages/repository"
	"medicrm_backend/internal/stages/transport"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

// positionWrite records a single UpdatePosition call in issue order.
type positionWrite struct {
	stageID  uuid.UUID
	position int
}

// fakeRepo is an in-memory stage repository whose InPositionTx stages
// writes and applies them only on commit.
type fakeRepo struct {
	stages []repository.Stage

	writes []positionWrite
	// failAt aborts the transaction on the nth write (0-based). -1 disables.
	failAt int

	listCalls int
	listDelay time.Duration
}

func newFakeRepo(tenantID uuid.UUID, names ...string) *fakeRepo {
	r := &fakeRepo{failAt: -1}
	for i, name := range names {
		r.stages = append(r.stages, repository.Stage{
			ID:       uuid.New(),
			TenantID: tenantID,
			Name:     name,
			Position: i,
		})
	}
	return r
}

func (r *fakeRepo) ListByTenant(_ context.Context, _ uuid.UUID) ([]repository.Stage, error) {
	r.listCalls++
	if r.listDelay > 0 {
		time.Sleep(r.listDelay)
	}
	out := make([]repository.Stage, len(r.stages))
	copy(out, r.stages)
	return out, nil
}

func (r *fakeRepo) GetByID(_ context.Context, _, id uuid.UUID) (repository.Stage, error) {
	for _, st := range r.stages {
		if st.ID == id {
			return st, nil
		}
	}
	return repository.Stage{}, apperr.NotFound("stage not found")
}

func (r *fakeRepo) Create(_ context.Context, params repository.CreateParams) (repository.Stage, error) {
	st := repository.Stage{
		ID:       uuid.New(),
		TenantID: params.TenantID,
		Name:     params.Name,
		Color:    params.Color,
		Position: len(r.stages),
	}
	r.stages = append(r.stages, st)
	return st, nil
}

func (r *fakeRepo) Update(_ context.Context, params repository.UpdateParams) (repository.Stage, error) {
	for i := range r.stages {
		if r.stages[i].ID == params.ID {
			if params.Name != nil {
				r.stages[i].Name = *params.Name
			}
			if params.Color != nil {
				r.stages[i].Color = params.Color
			}
			return r.stages[i], nil
		}
	}
	return repository.Stage{}, apperr.NotFound("stage not found")
}

func (r *fakeRepo) Delete(_ context.Context, _, id uuid.UUID) error {
	for i := range r.stages {
		if r.stages[i].ID == id {
			r.stages = append(r.stages[:i], r.stages[i+1:]...)
			for j := range r.stages {
				r.stages[j].Position = j
			}
			return nil
		}
	}
	return apperr.NotFound("stage not found")
}

func (r *fakeRepo) CountByTenant(_ context.Context, _ uuid.UUID) (int, error) {
	return len(r.stages), nil
}

func (r *fakeRepo) UpdatePosition(_ context.Context, _, stageID uuid.UUID, position int) error {
	for i := range r.stages {
		if r.stages[i].ID == stageID {
			r.stages[i].Position = position
			return nil
		}
	}
	return apperr.NotFound("stage not found")
}

func (r *fakeRepo) InPositionTx(_ context.Context, fn func(repository.PositionWriter) error) error {
	tx := &fakeTx{repo: r}
	if err := fn(tx); err != nil {
		return err
	}
	for _, w := range tx.staged {
		for i := range r.stages {
			if r.stages[i].ID == w.stageID {
				r.stages[i].Position = w.position
			}
		}
	}
	return nil
}

type fakeTx struct {
	repo   *fakeRepo
	staged []positionWrite
}

func (t *fakeTx) UpdatePosition(_ context.Context, _, stageID uuid.UUID, position int) error {
	if t.repo.failAt >= 0 && len(t.repo.writes) == t.repo.failAt {
		return errors.New("write failed")
	}
	w := positionWrite{stageID: stageID, position: position}
	t.repo.writes = append(t.repo.writes, w)
	t.staged = append(t.staged, w)
	return nil
}

var _ repository.Repository = (*fakeRepo)(nil)

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, len(b.events))
	copy(out, b.events)
	return out
}

func newTestService(repo repository.Repository) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(repo, bus, logger.New("test")), bus
}

func orderedNames(stages []repository.Stage) []string {
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name
	}
	return names
}

func TestReorderMoveForward(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo(tenantID, "A", "B", "C", "D", "E")
	svc, bus := newTestService(repo)

	result, err := svc.Reorder(context.Background(), tenantID, transport.ReorderRequest{
		SourceIndex:      1,
		DestinationIndex: 3,
	})
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}

	want := []string{"A", "C", "D", "B", "E"}
	for i, name := range want {
		if result.Stages[i].Name != name {
			t.Fatalf("position %d: got %s, want %s", i, result.Stages[i].Name, name)
		}
		if result.Stages[i].Position != i {
			t.Fatalf("position %d: got position field %d", i, result.Stages[i].Position)
		}
	}

	// Persisted order must match the response.
	stored, _ := repo.ListByTenant(context.Background(), tenantID)
	byPosition := make([]string, len(stored))
	for _, st := range stored {
		byPosition[st.Position] = st.Name
	}
	for i, name := range want {
		if byPosition[i] != name {
			t.Fatalf("stored position %d: got %s, want %s", i, byPosition[i], name)
		}
	}

	got := bus.published()
	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}
	evt, ok := got[0].(events.StagesReordered)
	if !ok {
		t.Fatalf("unexpected event type %T", got[0])
	}
	if len(evt.StageIDs) != 5 {
		t.Fatalf("expected 5 stage ids in event, got %d", len(evt.StageIDs))
	}
}

func TestReorderMoveBackward(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo(tenantID, "A", "B", "C", "D")
	svc, _ := newTestService(repo)

	result, err := svc.Reorder(context.Background(), tenantID, transport.ReorderRequest{
		SourceIndex:      3,
		DestinationIndex: 0,
	})
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}

	want := []string{"D", "A", "B", "C"}
	for i, name := range want {
		if result.Stages[i].Name != name {
			t.Fatalf("position %d: got %s, want %s", i, result.Stages[i].Name, name)
		}
	}
}

func TestReorderNoopSameIndex(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo(tenantID, "A", "B", "C")
	svc, _ := newTestService(repo)

	result, err := svc.Reorder(context.Background(), tenantID, transport.ReorderRequest{
		SourceIndex:      1,
		DestinationIndex: 1,
	})
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	if len(repo.writes) != 0 {
		t.Fatalf("expected no position writes for a same-index move, got %d", len(repo.writes))
	}
	if got := orderedNames(stagesFromResponse(result)); got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("order changed on no-op move: %v", got)
	}
}

func TestReorderWritesOnlyChangedRowsInOrder(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo(tenantID, "A", "B", "C", "D", "E")
	svc, _ := newTestService(repo)

	// Moving B to index 3 shifts C and D left; A and E keep their positions.
	_, err := svc.Reorder(context.Background(), tenantID, transport.ReorderRequest{
		SourceIndex:      1,
		DestinationIndex: 3,
	})
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}

	if len(repo.writes) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(repo.writes))
	}
	// Writes are issued in the new list's order.
	wantPositions := []int{1, 2, 3}
	for i, w := range repo.writes {
		if w.position != wantPositions[i] {
			t.Fatalf("write %d: got position %d, want %d", i, w.position, wantPositions[i])
		}
	}
}

func TestReorderAbortsOnFirstFailure(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo(tenantID, "A", "B", "C", "D", "E")
	repo.failAt = 1
	svc, bus := newTestService(repo)

	_, err := svc.Reorder(context.Background(), tenantID, transport.ReorderRequest{
		SourceIndex:      0,
		DestinationIndex: 4,
	})
	if err == nil {
		t.Fatal("expected reorder to fail")
	}

	// One write got through before the failure, none after.
	if len(repo.writes) != 1 {
		t.Fatalf("expected 1 write before abort, got %d", len(repo.writes))
	}
	// The transaction rolled back, so stored positions are untouched.
	stored, _ := repo.ListByTenant(context.Background(), tenantID)
	for i, st := range stored {
		if st.Position != i {
			t.Fatalf("stage %s: position changed to %d after rollback", st.Name, st.Position)
		}
	}
	if len(bus.published()) != 0 {
		t.Fatal("no event should be published on failure")
	}
}

func TestReorderIndexOutOfRange(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo(tenantID, "A", "B", "C")
	svc, _ := newTestService(repo)

	cases := []transport.ReorderRequest{
		{SourceIndex: -1, DestinationIndex: 0},
		{SourceIndex: 3, DestinationIndex: 0},
		{SourceIndex: 0, DestinationIndex: -1},
		{SourceIndex: 0, DestinationIndex: 3},
	}
	for _, req := range cases {
		_, err := svc.Reorder(context.Background(), tenantID, req)
		if apperr.GetKind(err) != apperr.KindValidation {
			t.Fatalf("indices %d->%d: expected validation error, got %v", req.SourceIndex, req.DestinationIndex, err)
		}
	}
}

func TestReorderRejectsConcurrent(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo(tenantID, "A", "B", "C")
	repo.listDelay = 50 * time.Millisecond
	svc, _ := newTestService(repo)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := svc.Reorder(context.Background(), tenantID, transport.ReorderRequest{
			SourceIndex:      0,
			DestinationIndex: 2,
		})
		done <- err
	}()

	<-started
	time.Sleep(10 * time.Millisecond)

	_, err := svc.Reorder(context.Background(), tenantID, transport.ReorderRequest{
		SourceIndex:      0,
		DestinationIndex: 1,
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for concurrent reorder, got %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("first reorder should succeed, got %v", err)
	}
}

func TestSeedDefaultsIdempotent(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo(tenantID)
	svc, _ := newTestService(repo)

	evt := events.TenantCreated{TenantID: tenantID}
	if err := svc.SeedDefaults(context.Background(), evt); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	first := len(repo.stages)
	if first == 0 {
		t.Fatal("expected default stages to be created")
	}

	if err := svc.SeedDefaults(context.Background(), evt); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if len(repo.stages) != first {
		t.Fatalf("second seed changed stage count from %d to %d", first, len(repo.stages))
	}
}

func stagesFromResponse(r transport.StageListResponse) []repository.Stage {
	out := make([]repository.Stage, len(r.Stages))
	for i, st := range r.Stages {
		out[i] = repository.Stage{ID: st.ID, Name: st.Name, Position: st.Position}
	}
	return out
}
