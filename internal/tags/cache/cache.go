// Package cache provides a Redis read-through cache for tenant tag lists.
// Mutations invalidate the cached list; readers repopulate it on miss.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"medicrm_backend/internal/tags/store"
)

const (
	keyPrefix  = "tags:"
	defaultTTL = 10 * time.Minute
)

// Cache stores serialized tag lists per tenant.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a tag cache backed by the given Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: defaultTTL}
}

func key(tenantID uuid.UUID) string {
	return keyPrefix + tenantID.String()
}

// Get returns the cached tag list for a tenant, or ok=false on miss.
// Redis errors are treated as misses so the database remains the
// source of truth when the cache is unavailable.
func (c *Cache) Get(ctx context.Context, tenantID uuid.UUID) ([]store.Tag, bool) {
	data, err := c.client.Get(ctx, key(tenantID)).Bytes()
	if err != nil {
		return nil, false
	}
	var tags []store.Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, false
	}
	return tags, true
}

// Set caches a tenant's tag list.
func (c *Cache) Set(ctx context.Context, tenantID uuid.UUID, tags []store.Tag) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	if err := c.client.Set(ctx, key(tenantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache tags: %w", err)
	}
	return nil
}

// Invalidate drops the cached list after a mutation.
func (c *Cache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, key(tenantID)).Err(); err != nil {
		return fmt.Errorf("invalidate tags: %w", err)
	}
	return nil
}
