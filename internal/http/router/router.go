// Package router assembles the gin engine from the application modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "casametrix_front/internal/http"
	"casametrix_front/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New builds the engine: global middleware, health and metrics endpoints,
// then every module under /api/v1.
func New(app *apphttp.App) *gin.Engine {
	cfg := app.Config
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(cfg)))
	if app.Metrics != nil {
		engine.Use(app.Metrics.Middleware())
	}

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if app.Metrics != nil && cfg.IsMetricsEnabled() {
		engine.GET("/metrics", gin.WrapH(app.Metrics.Handler()))
	}

	limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.GetRateLimitRPS()), cfg.GetRateLimitBurst(), app.Logger)
	v1 := engine.Group("/api/v1")
	v1.Use(limiter.RateLimit())
	v1.Use(httpkit.BrowserSession(cfg.GetSessionCookieName(), cfg.GetSessionTTL(), cfg.GetSessionCookieSecure()))

	rctx := &apphttp.RouterContext{
		Engine:          engine,
		V1:              v1,
		Config:          cfg,
		AuthRateLimiter: httpkit.NewAuthRateLimiter(app.Logger),
	}
	for _, m := range app.Modules {
		m.RegisterRoutes(rctx)
		app.Logger.Debug("module registered", "module", m.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		c.AllowAllOrigins = true
		// Wildcard origins cannot carry cookies.
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.GetCORSOrigins()
	}
	return c
}
