// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"casametrix_front/internal/events"
	"casametrix_front/platform/config"
	"casametrix_front/platform/logger"
	"casametrix_front/platform/metrics"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.SessionConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP and session settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks (token store ping). Optional.
	Health HealthChecker
	// Metrics is the Prometheus collector. Nil disables /metrics.
	Metrics *metrics.Collector
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing modules.
	Modules []Module
}
