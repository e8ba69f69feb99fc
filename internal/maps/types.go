package maps

import "casametrix_front/internal/autocomplete"

// LookupRequest represents the query parameters of a one-shot lookup.
type LookupRequest struct {
	Query string `form:"q" validate:"required,notblank,min=3,max=200"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=20"`
}

// LookupResponse wraps the suggestions returned to the caller.
type LookupResponse struct {
	Query       string                    `json:"query"`
	Suggestions []autocomplete.Suggestion `json:"suggestions"`
}

type nominatimAddress struct {
	Road         string `json:"road"`
	HouseNumber  string `json:"house_number"`
	Postcode     string `json:"postcode"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	Hamlet       string `json:"hamlet"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Importance  *float64         `json:"importance"`
	Address     nominatimAddress `json:"address"`
}
