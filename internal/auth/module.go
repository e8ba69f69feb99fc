// Package auth provides the authentication proxy module.
// This file defines the module that encapsulates all auth setup and route registration.
package auth

import (
	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/auth/handler"
	"casametrix_front/internal/auth/service"
	"casametrix_front/internal/clock"
	"casametrix_front/internal/events"
	apphttp "casametrix_front/internal/http"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/session"
	"casametrix_front/platform/logger"
	"casametrix_front/platform/validator"
)

// Module is the auth module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(api *apiclient.Client, sessions *session.Registry, eventBus events.Bus, clk clock.Clock, msgs *messages.Catalog, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(api, sessions, eventBus, clk, msgs, log)
	h := handler.New(svc, val)

	return &Module{handler: h}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")

	// Credential routes with stricter rate limiting
	credentials := authGroup.Group("")
	credentials.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(credentials)

	authGroup.GET("/me", m.handler.Me)
	authGroup.POST("/logout", m.handler.Logout)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
