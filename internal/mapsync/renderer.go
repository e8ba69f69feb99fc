// Package mapsync keeps a single map instance per view in step with the
// saved address and the device position.
package mapsync

import (
	"casametrix_front/internal/geo"
)

// Source names the origin of a marker. There is at most one marker per
// source on a map.
type Source string

const (
	SourceSaved  Source = "saved"
	SourceDevice Source = "device"
)

// Marker is one pin on the map.
type Marker struct {
	Source   Source    `json:"source"`
	Position geo.Point `json:"position"`
	Popup    string    `json:"popup,omitempty"`
}

// Handle is a live map instance. It is the only way to mutate the map.
type Handle interface {
	SetView(center geo.Point, zoom float64)
	FitBounds(b geo.Bounds, padding int)
	UpsertMarker(m Marker)
	RemoveMarker(src Source)
}

// Renderer creates and releases map instances. Every Handle returned by
// Init must be passed to Dispose exactly once.
type Renderer interface {
	Init(container string, center geo.Point, zoom float64) (Handle, error)
	Dispose(h Handle)
}
