// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// BrowserIDKey is the context key for the browser session ID
	BrowserIDKey contextKey = "browser_id"
	// ViewIDKey is the context key for a mounted view ID
	ViewIDKey contextKey = "view_id"
)

// Options controls where log records go.
// An empty File keeps output on Output only.
type Options struct {
	Env        string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Output defaults to stdout.
	Output io.Writer
}

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment, writing to stdout.
func New(env string) *Logger {
	return NewWithOptions(Options{Env: env})
}

// NewWithOptions creates a logger that also writes to a rotating file when
// opts.File is set.
func NewWithOptions(opts Options) *Logger {
	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}
	if opts.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		})
	}
	return newLogger(opts.Env, out)
}

// NewDiscard returns a logger that drops everything. Used by tests and the
// terminal client where stdout belongs to the user.
func NewDiscard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newLogger(env string, out io.Writer) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, browser_id and view_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if browserID, ok := ctx.Value(BrowserIDKey).(string); ok && browserID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("browser_id", browserID))}
	}

	if viewID, ok := ctx.Value(ViewIDKey).(string); ok && viewID != "" {
		newLogger = newLogger.WithView(viewID)
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// WithView returns a logger scoped to one mounted view
func (l *Logger) WithView(viewID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("view_id", viewID)),
	}
}

// WithComponent returns a logger tagged with a component name
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("component", name)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// UpstreamError logs a failed call to a remote service
func (l *Logger) UpstreamError(service, operation string, status int, err error) {
	attrs := []any{
		slog.String("service", service),
		slog.String("operation", operation),
		slog.Int("status", status),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.Warn("upstream_error", attrs...)
}

// AuthEvent logs authentication events
func (l *Logger) AuthEvent(event, username string, success bool, reason string) {
	if success {
		l.Info("auth_event",
			slog.String("event", event),
			slog.String("username", username),
			slog.Bool("success", success),
		)
	} else {
		l.Warn("auth_event",
			slog.String("event", event),
			slog.String("username", username),
			slog.Bool("success", success),
			slog.String("reason", reason),
		)
	}
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

// QuotaExceeded logs a server-declared search throttle for a view
func (l *Logger) QuotaExceeded(viewID, detail string) {
	l.Warn("quota_exceeded",
		slog.String("view_id", viewID),
		slog.String("detail", detail),
	)
}
