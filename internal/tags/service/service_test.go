package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"medicrm_backend/internal/events"
	"medicrm_backend/internal/tags/cache"
	"medicrm_backend/internal/tags/repository"
	"medicrm_backend/internal/tags/transport"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

// fakeRepo is an in-memory tag repository that counts list calls so
// cache hits are observable.
type fakeRepo struct {
	tags      map[uuid.UUID][]repository.Tag
	listCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tags: make(map[uuid.UUID][]repository.Tag)}
}

func (r *fakeRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]repository.Tag, error) {
	r.listCalls++
	out := make([]repository.Tag, len(r.tags[tenantID]))
	copy(out, r.tags[tenantID])
	return out, nil
}

func (r *fakeRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (repository.Tag, error) {
	for _, t := range r.tags[tenantID] {
		if t.ID == id {
			return t, nil
		}
	}
	return repository.Tag{}, apperr.NotFound("tag not found")
}

func (r *fakeRepo) Create(_ context.Context, tenantID uuid.UUID, name, color string) (repository.Tag, error) {
	t := repository.Tag{ID: uuid.New(), TenantID: tenantID, Name: name, Color: color}
	r.tags[tenantID] = append(r.tags[tenantID], t)
	return t, nil
}

func (r *fakeRepo) Update(_ context.Context, tenantID, id uuid.UUID, name, color *string) (repository.Tag, error) {
	list := r.tags[tenantID]
	for i := range list {
		if list[i].ID == id {
			if name != nil {
				list[i].Name = *name
			}
			if color != nil {
				list[i].Color = *color
			}
			return list[i], nil
		}
	}
	return repository.Tag{}, apperr.NotFound("tag not found")
}

func (r *fakeRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	list := r.tags[tenantID]
	for i := range list {
		if list[i].ID == id {
			r.tags[tenantID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("tag not found")
}

func (r *fakeRepo) CountByTenant(_ context.Context, tenantID uuid.UUID) (int, error) {
	return len(r.tags[tenantID]), nil
}

var _ repository.Repository = (*fakeRepo)(nil)

func newCachedService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newFakeRepo()
	return New(repo, cache.New(client), logger.New("test")), repo
}

func TestListServesFromCache(t *testing.T) {
	svc, repo := newCachedService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	if _, err := svc.Create(ctx, tenantID, transport.CreateTagRequest{Name: "VIP"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.List(ctx, tenantID); err != nil {
		t.Fatalf("first list failed: %v", err)
	}
	if _, err := svc.List(ctx, tenantID); err != nil {
		t.Fatalf("second list failed: %v", err)
	}

	if repo.listCalls != 1 {
		t.Fatalf("expected one repository read, got %d", repo.listCalls)
	}
}

func TestMutationsInvalidateCache(t *testing.T) {
	svc, repo := newCachedService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	created, err := svc.Create(ctx, tenantID, transport.CreateTagRequest{Name: "Retorno"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	svc.List(ctx, tenantID) // warm cache

	newName := "Retorno 30d"
	if _, err := svc.Update(ctx, tenantID, created.ID, transport.UpdateTagRequest{Name: &newName}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	result, err := svc.List(ctx, tenantID)
	if err != nil {
		t.Fatalf("list after update failed: %v", err)
	}
	if result.Tags[0].Name != newName {
		t.Fatalf("stale list after update: got %s", result.Tags[0].Name)
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected cache miss after mutation, list calls = %d", repo.listCalls)
	}
}

func TestCreateAppliesDefaultColor(t *testing.T) {
	svc, _ := newCachedService(t)
	tenantID := uuid.New()

	tag, err := svc.Create(context.Background(), tenantID, transport.CreateTagRequest{Name: "Sem cor"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if tag.Color != "#3B82F6" {
		t.Fatalf("expected default color, got %s", tag.Color)
	}
}

func TestListWithoutCache(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, nil, logger.New("test"))
	tenantID := uuid.New()
	ctx := context.Background()

	svc.Create(ctx, tenantID, transport.CreateTagRequest{Name: "A"})
	svc.List(ctx, tenantID)
	svc.List(ctx, tenantID)

	if repo.listCalls != 2 {
		t.Fatalf("nil cache should read the repository every time, got %d calls", repo.listCalls)
	}
}

func TestSeedDefaultsIdempotent(t *testing.T) {
	svc, repo := newCachedService(t)
	tenantID := uuid.New()
	ctx := context.Background()

	evt := seedEvent(tenantID)
	if err := svc.SeedDefaults(ctx, evt); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	count, _ := repo.CountByTenant(ctx, tenantID)
	if count == 0 {
		t.Fatal("expected seeded tags")
	}

	if err := svc.SeedDefaults(ctx, evt); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	after, _ := repo.CountByTenant(ctx, tenantID)
	if after != count {
		t.Fatalf("second seed changed count from %d to %d", count, after)
	}
}

func seedEvent(tenantID uuid.UUID) events.TenantCreated {
	return events.TenantCreated{BaseEvent: events.NewBaseEvent(), TenantID: tenantID}
}
