package views

import "casametrix_front/internal/searchview"

// MountRequest is the body of POST /views. Both fields are optional.
type MountRequest struct {
	ID        string `json:"id" validate:"omitempty,uuid"`
	Container string `json:"container" validate:"max=64"`
}

// MountResponse is returned by POST /views.
type MountResponse struct {
	ViewID   string              `json:"viewId"`
	Snapshot searchview.Snapshot `json:"snapshot"`
}

// QueryRequest is the body of PUT /views/:id/query. An empty query clears
// the suggestions.
type QueryRequest struct {
	Query string `json:"query" validate:"max=200"`
}

// SelectRequest is the body of POST /views/:id/select.
type SelectRequest struct {
	Index *int `json:"index" validate:"required,min=0,max=50"`
}

// LocateRequest is the optional body of POST /views/:id/locate. It carries
// the result of the browser's own geolocation call; without it the server
// side locator is used.
type LocateRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,gte=-180,lte=180"`
	Error     string   `json:"error" validate:"omitempty,oneof=permission_denied unavailable timeout unsupported"`
}

// SearchRequest is the body of POST /views/:id/search. Blank queries are
// accepted and answered with an info toast by the view itself.
type SearchRequest struct {
	Query string `json:"query" validate:"max=200"`
}

// AttachRequest is the body of PUT /views/:id/map.
type AttachRequest struct {
	Container string `json:"container" validate:"required,notblank,max=64"`
}

// CommandResponse is returned by every view command.
type CommandResponse struct {
	Accepted bool                `json:"accepted"`
	Snapshot searchview.Snapshot `json:"snapshot"`
}
