package searchview

import (
	"casametrix_front/internal/autocomplete"
	"casametrix_front/internal/geo"
	"casametrix_front/internal/geolocation"
	"casametrix_front/internal/mapsync"
	"casametrix_front/internal/search"
	"casametrix_front/internal/selection"
	"casametrix_front/internal/toast"
)

var defaultViewport = geo.Viewport{Width: 800, Height: 320}

// Snapshot is the complete render state of a view at one point in time.
type Snapshot struct {
	ViewID        string             `json:"viewId"`
	Version       uint64             `json:"version"`
	Authenticated bool               `json:"authenticated"`
	Autocomplete  autocomplete.State `json:"autocomplete"`
	Selection     selection.State    `json:"selection"`
	Geolocation   geolocation.State  `json:"geolocation"`
	Search        search.State       `json:"search"`
	QuotaLabel    string             `json:"quotaLabel"`
	QuotaHint     string             `json:"quotaHint,omitempty"`
	Toasts        []toast.Toast      `json:"toasts"`
	Map           mapsync.State      `json:"map"`
	TileURL       string             `json:"tileUrl,omitempty"`
}
