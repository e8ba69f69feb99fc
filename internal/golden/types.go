// Package golden talks to the Casametrix golden index: logging a confirmed
// suggestion and searching the curated addresses.
package golden

import (
	"time"

	"casametrix_front/internal/geo"
)

// SavedAddress is the server-persisted record of a confirmed suggestion.
// It is never mutated client side.
type SavedAddress struct {
	ID         string     `json:"id"`
	Address    string     `json:"address"`
	PostalCode string     `json:"postal_code,omitempty"`
	City       string     `json:"city,omitempty"`
	Latitude   *float64   `json:"lat,omitempty"`
	Longitude  *float64   `json:"lng,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// Point returns the saved coordinates when both are present and valid.
func (s SavedAddress) Point() (geo.Point, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: *s.Latitude, Lng: *s.Longitude}
	return p, p.Valid()
}

// SearchResultAddress is one golden index hit. Order is backend relevance.
type SearchResultAddress struct {
	ID         string   `json:"id"`
	Address    string   `json:"address"`
	PostalCode string   `json:"postal_code,omitempty"`
	City       string   `json:"city,omitempty"`
	Latitude   *float64 `json:"lat,omitempty"`
	Longitude  *float64 `json:"lng,omitempty"`
}

// SelectionRequest is the body of POST /addresses/ban-log.
type SelectionRequest struct {
	Label      string   `json:"label"`
	City       string   `json:"city,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Latitude   *float64 `json:"lat,omitempty"`
	Longitude  *float64 `json:"lng,omitempty"`
}

type searchResponse struct {
	Results []SearchResultAddress `json:"results"`
}
