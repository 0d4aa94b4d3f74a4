package http

import (
	"context"

	"medicrm_backend/internal/events"
	"medicrm_backend/platform/config"
	"medicrm_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router itself reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs the readiness endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what the composition root hands to the router: fully built
// modules plus the shared infrastructure they sit on.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health answers the readiness probe, normally a DB ping.
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
