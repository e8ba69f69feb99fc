// Package geolocation acquires the user's position on explicit request,
// one request at a time, without ever retrying on its own.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/geo"

	"golang.org/x/sync/singleflight"
)

// Reason classifies a failed acquisition.
type Reason string

const (
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonUnavailable      Reason = "unavailable"
	ReasonTimeout          Reason = "timeout"
	ReasonUnsupported      Reason = "unsupported"
	ReasonUnexpected       Reason = "unexpected"
)

// LocateError is returned by a Locator that knows why it failed.
type LocateError struct {
	Reason Reason
	Err    error
}

func (e *LocateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geolocation %s: %v", e.Reason, e.Err)
	}
	return "geolocation " + string(e.Reason)
}

func (e *LocateError) Unwrap() error { return e.Err }

// Fail builds a LocateError.
func Fail(reason Reason, err error) error {
	return &LocateError{Reason: reason, Err: err}
}

// Locator resolves one position. It should honour ctx but is not required
// to; the Acquirer enforces its own timeout.
type Locator interface {
	Locate(ctx context.Context) (geo.Point, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (geo.Point, error)

func (f LocatorFunc) Locate(ctx context.Context) (geo.Point, error) { return f(ctx) }

// Static always reports the same point.
func Static(p geo.Point) Locator {
	return LocatorFunc(func(context.Context) (geo.Point, error) { return p, nil })
}

// Reported replays what a browser's own geolocation call produced: either a
// position or one of the error reasons.
func Reported(p *geo.Point, reason Reason) Locator {
	return LocatorFunc(func(context.Context) (geo.Point, error) {
		if reason != "" {
			return geo.Point{}, Fail(reason, nil)
		}
		if p == nil || !p.Valid() {
			return geo.Point{}, Fail(ReasonUnavailable, errors.New("invalid reported position"))
		}
		return *p, nil
	})
}

// IPLocator approximates a position from the client IP using an ip-api.com
// compatible endpoint. Concurrent lookups for the same IP share one call.
type IPLocator struct {
	api   *apiclient.Client
	group singleflight.Group
}

// NewIPLocator creates a locator over api, whose base URL is the JSON
// endpoint (for example http://ip-api.com/json/).
func NewIPLocator(api *apiclient.Client) *IPLocator {
	return &IPLocator{api: api}
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// For returns a Locator bound to clientIP. Private and loopback addresses
// resolve the server's own public address instead.
func (l *IPLocator) For(clientIP string) Locator {
	path := ""
	if ip := net.ParseIP(clientIP); ip != nil && !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		path = ip.String()
	}
	return LocatorFunc(func(ctx context.Context) (geo.Point, error) {
		ch := l.group.DoChan(path, func() (interface{}, error) {
			return l.lookup(context.WithoutCancel(ctx), path)
		})
		select {
		case <-ctx.Done():
			return geo.Point{}, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return geo.Point{}, res.Err
			}
			return res.Val.(geo.Point), nil
		}
	})
}

func (l *IPLocator) lookup(ctx context.Context, path string) (geo.Point, error) {
	var resp ipAPIResponse
	if err := l.api.GetJSON(ctx, "locate", path, nil, nil, &resp); err != nil {
		if status, ok := apiclient.StatusOf(err); ok && status == http.StatusForbidden {
			return geo.Point{}, Fail(ReasonPermissionDenied, err)
		}
		return geo.Point{}, Fail(ReasonUnavailable, err)
	}
	if !strings.EqualFold(resp.Status, "success") {
		return geo.Point{}, Fail(ReasonUnavailable, errors.New(resp.Message))
	}
	p := geo.Point{Lat: resp.Lat, Lng: resp.Lon}
	if !p.Valid() {
		return geo.Point{}, Fail(ReasonUnavailable, errors.New("invalid coordinates"))
	}
	return p, nil
}
