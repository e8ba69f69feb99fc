// Package apiclient is the JSON transport shared by every remote call the
// search flow makes: the Casametrix API as well as the public address and
// IP-location providers.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"casametrix_front/platform/logger"
	"casametrix_front/platform/metrics"

	"golang.org/x/net/publicsuffix"
)

const (
	userAgent    = "CasametrixFront/1.0"
	maxBodyBytes = 1 << 20
)

// TokenSource supplies an optional bearer token. *session.Session satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// Client talks to one base URL.
type Client struct {
	service string
	baseURL string
	http    *http.Client
	log     *logger.Logger
	metrics *metrics.Collector
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records every call on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for baseURL. service names the remote in logs and
// metrics.
func New(service, baseURL string, timeout time.Duration, log *logger.Logger, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%s base url: %w", service, err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	c := &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout, Jar: jar},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Service returns the name the client was created with.
func (c *Client) Service() string { return c.service }

// Request describes one call. Path is appended to the base URL; an empty
// Path calls the base URL itself.
type Request struct {
	Operation string
	Method    string
	Path      string
	Query     url.Values
	JSON      any
	Form      url.Values
	Auth      TokenSource
}

// Do performs req and decodes a 2xx JSON body into out when out is non-nil.
// Non-2xx statuses come back as *StatusError. A cancelled ctx comes back as
// an error matching context.Canceled and is not logged.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			c.observe(req.Operation, "canceled", start)
			return ctx.Err()
		}
		c.observe(req.Operation, "network_error", start)
		c.log.UpstreamError(c.service, req.Operation, 0, err)
		return fmt.Errorf("%s %s: %w", c.service, req.Operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			c.observe(req.Operation, "canceled", start)
			return ctx.Err()
		}
		c.observe(req.Operation, "network_error", start)
		return fmt.Errorf("%s %s: read body: %w", c.service, req.Operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Status: resp.StatusCode, Body: body, Detail: DetailOf(body)}
		c.observe(req.Operation, outcomeFor(resp.StatusCode), start)
		c.log.UpstreamError(c.service, req.Operation, resp.StatusCode, statusErr)
		return statusErr
	}

	c.observe(req.Operation, "success", start)
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Service: c.service, Operation: req.Operation, Err: err}
	}
	return nil
}

// GetJSON is Do for a GET.
func (c *Client) GetJSON(ctx context.Context, op, path string, query url.Values, auth TokenSource, out any) error {
	return c.Do(ctx, Request{Operation: op, Method: http.MethodGet, Path: path, Query: query, Auth: auth}, out)
}

// PostJSON is Do for a POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, op, path string, body any, auth TokenSource, out any) error {
	return c.Do(ctx, Request{Operation: op, Method: http.MethodPost, Path: path, JSON: body, Auth: auth}, out)
}

// PostForm is Do for a POST with an urlencoded form body.
func (c *Client) PostForm(ctx context.Context, op, path string, form url.Values, out any) error {
	return c.Do(ctx, Request{Operation: op, Method: http.MethodPost, Path: path, Form: form}, out)
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	endpoint := c.baseURL
	if req.Path != "" {
		endpoint += "/" + strings.TrimLeft(req.Path, "/")
	}
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.JSON != nil:
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", c.service, req.Operation, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", c.service, req.Operation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Auth != nil {
		if token, ok := req.Auth.Token(); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}

func (c *Client) observe(op, outcome string, start time.Time) {
	c.metrics.ObserveUpstream(c.service, op, outcome, time.Since(start))
}

func outcomeFor(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "throttled"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "unauthorized"
	case status >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}

// IsCanceled reports whether err is the result of a cancelled context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
