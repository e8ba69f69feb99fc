// Package searchview hosts the address search flow of one browser view:
// suggestions, selection, geolocation, golden index search, map and toasts,
// all confined to a single event loop.
package searchview

import (
	"time"

	"casametrix_front/internal/autocomplete"
	"casametrix_front/internal/clock"
	"casametrix_front/internal/events"
	"casametrix_front/internal/geolocation"
	"casametrix_front/internal/mapsync"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/search"
	"casametrix_front/internal/selection"
	"casametrix_front/internal/session"
	"casametrix_front/platform/logger"
	"casametrix_front/platform/metrics"
)

// Settings are the tunables shared by every view.
type Settings struct {
	Debounce      time.Duration
	MinChars      int
	Limit         int
	RPS           float64
	ToastTTL      time.Duration
	ToastMaxDepth int
	GeoTimeout    time.Duration
	CloseZoom     float64
	FitPadding    int
	TileURL       string
	IdleTimeout   time.Duration
}

// Deps are the collaborators shared by every view.
type Deps struct {
	Provider autocomplete.Provider
	Saver    selection.Saver
	Searcher search.Searcher
	// Locators returns the server-side locator for a client IP. Nil, or a
	// nil result, means geolocation is unsupported.
	Locators func(clientIP string) geolocation.Locator
	Renderer mapsync.Renderer
	Sessions *session.Registry
	Clock    clock.Clock
	Messages *messages.Catalog
	Bus      events.Bus
	Metrics  *metrics.Collector
	Log      *logger.Logger
	Settings Settings
}

func (d *Deps) defaults() {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Messages == nil {
		d.Messages = messages.Default
	}
	if d.Log == nil {
		d.Log = logger.NewDiscard()
	}
	if d.Renderer == nil {
		d.Renderer = mapsync.NewScene(defaultViewport, 19)
	}
}
