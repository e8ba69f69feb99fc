// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler, InMemoryBus) is in platform/events.
package events

import (
	"casametrix_front/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// View Lifecycle Events
// =============================================================================

// ViewMounted is published when a browser mounts a search view.
type ViewMounted struct {
	BaseEvent
	ViewID    string `json:"viewId"`
	BrowserID string `json:"browserId"`
}

func (e ViewMounted) EventName() string { return "view.mounted" }

// ViewUnmounted is published after a view released its resources.
type ViewUnmounted struct {
	BaseEvent
	ViewID string `json:"viewId"`
	Reason string `json:"reason"`
}

func (e ViewUnmounted) EventName() string { return "view.unmounted" }

// =============================================================================
// Search Flow Events
// =============================================================================

// AddressSaved is published when the golden index accepted a selection.
type AddressSaved struct {
	BaseEvent
	ViewID    string `json:"viewId"`
	AddressID string `json:"addressId"`
	Address   string `json:"address"`
}

func (e AddressSaved) EventName() string { return "search.address.saved" }

// SearchCompleted is published for every applied golden index search.
type SearchCompleted struct {
	BaseEvent
	ViewID  string `json:"viewId"`
	Query   string `json:"query"`
	Outcome string `json:"outcome"`
	Results int    `json:"results"`
}

func (e SearchCompleted) EventName() string { return "search.completed" }

// QuotaExceeded is published when the backend throttled a view's search.
type QuotaExceeded struct {
	BaseEvent
	ViewID string `json:"viewId"`
	Detail string `json:"detail"`
}

func (e QuotaExceeded) EventName() string { return "search.quota_exceeded" }

// LocationAcquired is published when a view resolved a device position.
type LocationAcquired struct {
	BaseEvent
	ViewID string  `json:"viewId"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

func (e LocationAcquired) EventName() string { return "geolocation.acquired" }

// =============================================================================
// Auth Events
// =============================================================================

// UserLoggedIn is published when a browser obtained a token.
type UserLoggedIn struct {
	BaseEvent
	BrowserID string `json:"browserId"`
	Subject   string `json:"subject,omitempty"`
}

func (e UserLoggedIn) EventName() string { return "auth.user.logged_in" }

// UserLoggedOut is published when a browser dropped its token.
type UserLoggedOut struct {
	BaseEvent
	BrowserID string `json:"browserId"`
}

func (e UserLoggedOut) EventName() string { return "auth.user.logged_out" }
