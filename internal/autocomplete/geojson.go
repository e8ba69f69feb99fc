package autocomplete

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// featureCollection is the BAN GeoJSON payload.
type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties struct {
		Label    string   `json:"label"`
		City     string   `json:"city"`
		Postcode string   `json:"postcode"`
		Score    *float64 `json:"score"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// flatSuggestion is the Casametrix proxy shape.
type flatSuggestion struct {
	Label      string   `json:"label"`
	City       string   `json:"city"`
	PostalCode string   `json:"postal_code"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	Score      *float64 `json:"score"`
	Source     string   `json:"source"`
}

var errUnexpectedPayload = errors.New("unexpected autocomplete payload")

// decodeSuggestions accepts either a FeatureCollection object or a flat
// array and returns suggestions in payload order with IDs assigned.
func decodeSuggestions(raw json.RawMessage, defaultSource string) ([]Suggestion, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Suggestion{}, nil
	}

	switch trimmed[0] {
	case '{':
		var fc featureCollection
		if err := json.Unmarshal(trimmed, &fc); err != nil {
			return nil, err
		}
		return AssignIDs(fromFeatures(fc.Features, defaultSource)), nil
	case '[':
		var flat []flatSuggestion
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return nil, err
		}
		return AssignIDs(fromFlat(flat, defaultSource)), nil
	default:
		return nil, errUnexpectedPayload
	}
}

// fromFeatures keeps payload order. Features with a blank label are skipped,
// so indices count only the suggestions returned.
func fromFeatures(features []feature, source string) []Suggestion {
	out := make([]Suggestion, 0, len(features))
	for _, f := range features {
		label := strings.TrimSpace(f.Properties.Label)
		if label == "" {
			continue
		}
		s := Suggestion{
			Label:      label,
			City:       f.Properties.City,
			PostalCode: f.Properties.Postcode,
			Score:      f.Properties.Score,
			Source:     source,
		}
		// GeoJSON orders coordinates as [lon, lat].
		if len(f.Geometry.Coordinates) >= 2 {
			s.Longitude = floatPtr(f.Geometry.Coordinates[0])
			s.Latitude = floatPtr(f.Geometry.Coordinates[1])
		}
		out = append(out, s)
	}
	return out
}

// fromFlat keeps payload order and skips items with a blank label.
func fromFlat(items []flatSuggestion, source string) []Suggestion {
	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		label := strings.TrimSpace(item.Label)
		if label == "" {
			continue
		}
		src := item.Source
		if src == "" {
			src = source
		}
		out = append(out, Suggestion{
			Label:      label,
			City:       item.City,
			PostalCode: item.PostalCode,
			Latitude:   item.Lat,
			Longitude:  item.Lng,
			Score:      item.Score,
			Source:     src,
		})
	}
	return out
}
