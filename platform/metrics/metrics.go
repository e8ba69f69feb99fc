// Package metrics bundles the Prometheus collectors exposed by the shell
// server. All recording methods are nil-safe so components can run without
// a collector.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the application collectors.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests     *prometheus.CounterVec
	HTTPDurations    *prometheus.HistogramVec
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	ToastsShown      *prometheus.CounterVec
	ActiveViews      prometheus.Gauge
}

// New registers collectors against reg, defaulting to the global Prometheus
// registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "casamx_http_requests_total",
		Help: "Handled shell HTTP requests, labeled by method, route and status.",
	}, []string{"method", "route", "status"}), "casamx_http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "casamx_http_request_duration_seconds",
		Help:    "Shell HTTP latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"}), "casamx_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	upstream, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "casamx_upstream_requests_total",
		Help: "Calls to remote services, labeled by service, operation and outcome.",
	}, []string{"service", "operation", "outcome"}), "casamx_upstream_requests_total")
	if err != nil {
		return nil, err
	}

	upstreamDuration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "casamx_upstream_request_duration_seconds",
		Help:    "Remote service latency in seconds.",
		Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "operation"}), "casamx_upstream_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	toasts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "casamx_toasts_shown_total",
		Help: "Notifications pushed to views, labeled by kind.",
	}, []string{"kind"}), "casamx_toasts_shown_total")
	if err != nil {
		return nil, err
	}

	views, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "casamx_active_views",
		Help: "Currently mounted search views.",
	}), "casamx_active_views")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		HTTPRequests:     httpRequests,
		HTTPDurations:    httpDurations,
		UpstreamRequests: upstream,
		UpstreamDuration: upstreamDuration,
		ToastsShown:      toasts,
		ActiveViews:      views,
	}, nil
}

// Middleware records request counts and durations per matched route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		if c == nil {
			return
		}
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveUpstream records one remote call.
func (c *Collector) ObserveUpstream(service, operation, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.UpstreamRequests.WithLabelValues(service, operation, outcome).Inc()
	c.UpstreamDuration.WithLabelValues(service, operation).Observe(elapsed.Seconds())
}

// ToastShown counts one notification of the given kind.
func (c *Collector) ToastShown(kind string) {
	if c == nil {
		return
	}
	c.ToastsShown.WithLabelValues(kind).Inc()
}

// SetActiveViews sets the mounted view gauge.
func (c *Collector) SetActiveViews(n int) {
	if c == nil {
		return
	}
	c.ActiveViews.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
