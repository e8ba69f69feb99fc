package autocomplete

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"casametrix_front/internal/apiclient"
)

// CasametrixProvider calls the API's BAN proxy at /addresses/ban-autocomplete.
type CasametrixProvider struct {
	api *apiclient.Client
}

// NewCasametrixProvider creates a provider using the shared API client.
func NewCasametrixProvider(api *apiclient.Client) *CasametrixProvider {
	return &CasametrixProvider{api: api}
}

func (p *CasametrixProvider) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	var raw json.RawMessage
	if err := p.api.GetJSON(ctx, "autocomplete", "/addresses/ban-autocomplete", queryParams(query, limit), nil, &raw); err != nil {
		return nil, err
	}
	return decodeSuggestions(raw, SourceBAN)
}

// BANProvider calls the public Base Adresse Nationale search directly.
type BANProvider struct {
	api *apiclient.Client
}

// NewBANProvider creates a provider for a client whose base URL is the BAN
// search endpoint.
func NewBANProvider(api *apiclient.Client) *BANProvider {
	return &BANProvider{api: api}
}

func (p *BANProvider) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	params := queryParams(query, limit)
	params.Set("autocomplete", "1")
	var raw json.RawMessage
	if err := p.api.GetJSON(ctx, "autocomplete", "", params, nil, &raw); err != nil {
		return nil, err
	}
	return decodeSuggestions(raw, SourceBAN)
}

func queryParams(query string, limit int) url.Values {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return params
}

var (
	_ Provider = (*CasametrixProvider)(nil)
	_ Provider = (*BANProvider)(nil)
)
