package maps

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/autocomplete"
)

// Service queries OpenStreetMap Nominatim and implements
// autocomplete.Provider.
type Service struct {
	api          *apiclient.Client
	countryCodes string
}

// NewService creates a Nominatim-backed provider. api must point at the
// Nominatim search endpoint.
func NewService(api *apiclient.Client, countryCodes string) *Service {
	return &Service{api: api, countryCodes: countryCodes}
}

// Suggest implements autocomplete.Provider.
func (s *Service) Suggest(ctx context.Context, query string, limit int) ([]autocomplete.Suggestion, error) {
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", strconv.Itoa(limit))
	if s.countryCodes != "" {
		params.Add("countrycodes", s.countryCodes)
	}

	var rawResults []nominatimResponse
	if err := s.api.GetJSON(ctx, "autocomplete", "", params, nil, &rawResults); err != nil {
		return nil, err
	}

	suggestions := make([]autocomplete.Suggestion, 0, len(rawResults))
	for _, raw := range rawResults {
		suggestion, ok := buildSuggestion(raw)
		if !ok {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}

	return autocomplete.AssignIDs(suggestions), nil
}

func buildSuggestion(raw nominatimResponse) (autocomplete.Suggestion, bool) {
	if raw.Address.Road == "" {
		return autocomplete.Suggestion{}, false
	}

	city := pickCity(raw.Address)
	if city == "" {
		return autocomplete.Suggestion{}, false
	}

	suggestion := autocomplete.Suggestion{
		Label:      buildLabel(raw.Address.Road, raw.Address.HouseNumber, raw.Address.Postcode, city),
		City:       city,
		PostalCode: raw.Address.Postcode,
		Source:     autocomplete.SourceNominatim,
	}
	if lat, err := strconv.ParseFloat(raw.Lat, 64); err == nil {
		if lon, err := strconv.ParseFloat(raw.Lon, 64); err == nil {
			suggestion.Latitude, suggestion.Longitude = &lat, &lon
		}
	}
	if raw.Importance != nil {
		suggestion.Score = raw.Importance
	}

	return suggestion, true
}

func pickCity(address nominatimAddress) string {
	if address.City != "" {
		return address.City
	}
	if address.Town != "" {
		return address.Town
	}
	if address.Village != "" {
		return address.Village
	}
	if address.Municipality != "" {
		return address.Municipality
	}
	return address.Hamlet
}

// buildLabel formats "<number> <road>, <postcode> <city>", the French order.
func buildLabel(road, houseNumber, postcode, city string) string {
	parts := make([]string, 0, 5)
	if houseNumber != "" {
		parts = append(parts, houseNumber)
	}
	parts = append(parts, road, ",")
	if postcode != "" {
		parts = append(parts, postcode)
	}
	parts = append(parts, city)

	label := strings.Join(parts, " ")
	label = strings.ReplaceAll(label, " ,", ",")
	return strings.TrimSpace(label)
}

var _ autocomplete.Provider = (*Service)(nil)
