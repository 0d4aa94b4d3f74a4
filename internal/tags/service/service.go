// Package service provides business logic for lead tags.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"medicrm_backend/internal/events"
	"medicrm_backend/internal/tags/cache"
	"medicrm_backend/internal/tags/repository"
	"medicrm_backend/internal/tags/store"
	"medicrm_backend/internal/tags/transport"
	"medicrm_backend/platform/logger"
)

// Service provides tenant tag management with a Redis read-through cache
// in front of Postgres.
type Service struct {
	repo  repository.Repository
	cache *cache.Cache
	log   *logger.Logger
}

// New creates a new tags service. The cache may be nil, in which case
// every read goes to the database.
func New(repo repository.Repository, c *cache.Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log}
}

// List returns the tenant's tags, serving from cache when possible.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) (transport.TagListResponse, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, tenantID); ok {
			return toListResponse(cached), nil
		}
	}

	tags, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return transport.TagListResponse{}, err
	}

	working := toStoreTags(tags)
	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, working); err != nil {
			s.log.Warn("tag cache set failed", "tenantId", tenantID, "error", err)
		}
	}
	return toListResponse(working), nil
}

// Create adds a tag, applying the default color when none is given.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateTagRequest) (transport.TagResponse, error) {
	color := req.Color
	if color == "" {
		color = store.DefaultColor
	}

	tag, err := s.repo.Create(ctx, tenantID, req.Name, color)
	if err != nil {
		return transport.TagResponse{}, err
	}
	s.invalidate(ctx, tenantID)

	s.log.Info("tag created", "id", tag.ID, "tenantId", tenantID, "name", tag.Name)
	return toResponse(tag), nil
}

// Update changes a tag's name and/or color.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req transport.UpdateTagRequest) (transport.TagResponse, error) {
	tag, err := s.repo.Update(ctx, tenantID, id, req.Name, req.Color)
	if err != nil {
		return transport.TagResponse{}, err
	}
	s.invalidate(ctx, tenantID)
	return toResponse(tag), nil
}

// Delete removes a tag. Lead associations are removed by the database
// via ON DELETE CASCADE.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.invalidate(ctx, tenantID)
	s.log.Info("tag deleted", "id", id, "tenantId", tenantID)
	return nil
}

// defaultTags seeds a fresh tenant with a usable starter set.
var defaultTags = []struct {
	Name  string
	Color string
}{
	{"Primeira Consulta", "#3B82F6"},
	{"Retorno", "#8B5CF6"},
	{"Convênio", "#F59E0B"},
	{"Particular", "#10B981"},
	{"Urgente", "#EF4444"},
}

// SeedDefaults creates the starter tags for a new tenant. Tenants that
// already have tags are left alone.
func (s *Service) SeedDefaults(ctx context.Context, e events.TenantCreated) error {
	count, err := s.repo.CountByTenant(ctx, e.TenantID)
	if err != nil {
		return fmt.Errorf("count tags: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, d := range defaultTags {
		if _, err := s.repo.Create(ctx, e.TenantID, d.Name, d.Color); err != nil {
			return fmt.Errorf("seed tag %q: %w", d.Name, err)
		}
	}
	s.invalidate(ctx, e.TenantID)

	s.log.Info("default tags seeded", "tenantId", e.TenantID, "count", len(defaultTags))
	return nil
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.log.Warn("tag cache invalidation failed", "tenantId", tenantID, "error", err)
	}
}

func toStoreTags(tags []repository.Tag) []store.Tag {
	out := make([]store.Tag, len(tags))
	for i, t := range tags {
		out[i] = store.Tag{ID: t.ID, Name: t.Name, Color: t.Color}
	}
	return out
}

func toResponse(t repository.Tag) transport.TagResponse {
	return transport.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color}
}

func toListResponse(tags []store.Tag) transport.TagListResponse {
	items := make([]transport.TagResponse, len(tags))
	for i, t := range tags {
		items[i] = transport.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color}
	}
	return transport.TagListResponse{Tags: items, Total: len(items)}
}
