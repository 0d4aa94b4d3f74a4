// Package store provides an in-memory tag collection used as the
// working set behind the tag service. Insertion order is preserved so
// tag pickers render stably.
package store

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"medicrm_backend/platform/apperr"
)

// DefaultColor is applied when a tag is created without an explicit color.
const DefaultColor = "#3B82F6"

// Tag is a tenant-scoped label attachable to leads.
type Tag struct {
	ID    uuid.UUID
	Name  string
	Color string
}

// Store holds one tenant's tags in memory, ordered by insertion.
// All methods are safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	tags []Tag
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// NewFromTags creates a store preloaded with tags, preserving their order.
func NewFromTags(tags []Tag) *Store {
	s := &Store{tags: make([]Tag, len(tags))}
	copy(s.tags, tags)
	return s
}

// List returns all tags in insertion order.
func (s *Store) List() []Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tag, len(s.tags))
	copy(out, s.tags)
	return out
}

// Get returns the tag with the given id.
func (s *Store) Get(id uuid.UUID) (Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tags {
		if t.ID == id {
			return t, nil
		}
	}
	return Tag{}, apperr.NotFound("tag not found")
}

// Add appends a new tag. Names are unique case-insensitively; an empty
// color falls back to DefaultColor.
func (s *Store) Add(name, color string) (Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tag{}, apperr.Validation("tag name is required")
	}
	if color == "" {
		color = DefaultColor
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags {
		if strings.EqualFold(t.Name, name) {
			return Tag{}, apperr.Conflict("tag already exists")
		}
	}

	tag := Tag{ID: uuid.New(), Name: name, Color: color}
	s.tags = append(s.tags, tag)
	return tag, nil
}

// Update changes a tag's name and/or color in place, keeping its position.
func (s *Store) Update(id uuid.UUID, name, color *string) (Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.tags {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Tag{}, apperr.NotFound("tag not found")
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return Tag{}, apperr.Validation("tag name is required")
		}
		for i, t := range s.tags {
			if i != idx && strings.EqualFold(t.Name, trimmed) {
				return Tag{}, apperr.Conflict("tag already exists")
			}
		}
		s.tags[idx].Name = trimmed
	}
	if color != nil && *color != "" {
		s.tags[idx].Color = *color
	}
	return s.tags[idx], nil
}

// Remove deletes a tag. Later tags keep their relative order.
func (s *Store) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tags {
		if t.ID == id {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("tag not found")
}

// Len returns the number of tags.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tags)
}
