package golden

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"casametrix_front/internal/apiclient"
	"casametrix_front/platform/apperr"
)

const (
	searchPath = "/addresses/search"
	banLogPath = "/addresses/ban-log"
)

// Client calls the golden index endpoints of the Casametrix API.
type Client struct {
	api *apiclient.Client
}

// NewClient wraps the shared API transport.
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// LogSelection persists a confirmed suggestion. A missing token is not an
// error here: the call is attempted anonymously. A 401 comes back as an
// apperr.KindUnauthorized error; any other failure wraps the cause.
func (c *Client) LogSelection(ctx context.Context, req SelectionRequest, auth apiclient.TokenSource) (SavedAddress, error) {
	var saved SavedAddress
	err := c.api.PostJSON(ctx, "ban_log", banLogPath, req, auth, &saved)
	if err == nil {
		if saved.ID == "" {
			return SavedAddress{}, apperr.Internal("saved address has no id").WithOp("golden.LogSelection")
		}
		return saved, nil
	}
	if status, ok := apiclient.StatusOf(err); ok {
		kind := apperr.FromStatus(status)
		return SavedAddress{}, apperr.Wrap(kind, "log selection failed", err).WithOp("golden.LogSelection")
	}
	return SavedAddress{}, apperr.Wrap(apperr.KindUnavailable, "log selection failed", err).WithOp("golden.LogSelection")
}

// Search runs one golden index query and classifies the response. A
// cancelled ctx yields ctx.Err() and no outcome.
func (c *Client) Search(ctx context.Context, query string, auth apiclient.TokenSource) (SearchOutcome, error) {
	var raw json.RawMessage
	err := c.api.GetJSON(ctx, "search", searchPath, url.Values{"q": {query}}, auth, &raw)
	if err != nil {
		if apiclient.IsCanceled(err) {
			return SearchOutcome{}, err
		}
		var decodeErr *apiclient.DecodeError
		if errors.As(err, &decodeErr) {
			return SearchOutcome{Kind: OutcomeEmpty}, nil
		}
		return outcomeFromError(err), nil
	}
	return ParseOutcome(200, raw), nil
}
