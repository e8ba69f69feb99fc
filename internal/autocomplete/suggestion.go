// Package autocomplete turns keystrokes into debounced, cancellable calls to
// an address suggestion provider.
package autocomplete

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"casametrix_front/internal/geo"

	"golang.org/x/text/unicode/norm"
)

// Suggestion sources.
const (
	SourceBAN       = "ban"
	SourceNominatim = "nominatim"
)

// Suggestion is one normalised provider result. It has no identity beyond
// its position in the list; ID is a display key derived from that position.
type Suggestion struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	City       string   `json:"city,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Source     string   `json:"source,omitempty"`
}

// Point returns the suggestion's coordinates when both are present and valid.
func (s Suggestion) Point() (geo.Point, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: *s.Latitude, Lng: *s.Longitude}
	return p, p.Valid()
}

// Provider fetches suggestions for an already normalised query, preserving
// the provider's order.
type Provider interface {
	Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, query string, limit int) ([]Suggestion, error)

func (f ProviderFunc) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	return f(ctx, query, limit)
}

// Normalize trims, collapses inner whitespace and applies Unicode NFC so
// "é" typed as e+combining accent matches the precomposed form.
func Normalize(query string) string {
	return strings.Join(strings.Fields(norm.NFC.String(query)), " ")
}

// Length counts runes, not bytes.
func Length(query string) int {
	return utf8.RuneCountInString(query)
}

// AssignIDs sets positional display keys in place.
func AssignIDs(list []Suggestion) []Suggestion {
	for i := range list {
		list[i].ID = fmt.Sprintf("%d-%s", i, list[i].Label)
	}
	return list
}

func floatPtr(v float64) *float64 { return &v }
