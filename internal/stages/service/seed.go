package service

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"medicrm_backend/internal/events"
	"medicrm_backend/internal/stages/repository"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type defaultStage struct {
	Name  string  `yaml:"name"`
	Color *string `yaml:"color"`
}

type defaultsFile struct {
	Stages []defaultStage `yaml:"stages"`
}

// SeedDefaults creates the default pipeline for a new tenant. Tenants that
// already have stages are left alone, so re-delivered events are harmless.
func (s *Service) SeedDefaults(ctx context.Context, e events.TenantCreated) error {
	count, err := s.repo.CountByTenant(ctx, e.TenantID)
	if err != nil {
		return fmt.Errorf("count stages: %w", err)
	}
	if count > 0 {
		return nil
	}

	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		return fmt.Errorf("parse default stages: %w", err)
	}

	for _, d := range defaults.Stages {
		if _, err := s.repo.Create(ctx, repository.CreateParams{
			TenantID: e.TenantID,
			Name:     d.Name,
			Color:    d.Color,
		}); err != nil {
			return fmt.Errorf("seed stage %q: %w", d.Name, err)
		}
	}

	s.log.Info("default stages seeded", "tenantId", e.TenantID, "count", len(defaults.Stages))
	return nil
}
