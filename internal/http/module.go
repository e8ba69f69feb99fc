// Package http provides HTTP server infrastructure including the Module interface
// that all shell modules must implement for route registration.
package http

import (
	"casametrix_front/platform/config"
	"casametrix_front/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a feature area that can register its HTTP routes.
// Each module implements this interface to encapsulate its own route setup,
// keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	// The RouterContext provides access to shared middleware and configuration.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
// This avoids passing many parameters to each module's RegisterRoutes method.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group. Every request in it carries a browser
	// session cookie.
	V1 *gin.RouterGroup
	// Config is the HTTP configuration.
	Config config.HTTPConfig
	// AuthRateLimiter is the stricter rate limiter for login and register.
	AuthRateLimiter *httpkit.AuthRateLimiter
}
