package golden

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"casametrix_front/internal/apiclient"
)

// OutcomeKind tags a SearchOutcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeEmpty
	OutcomeQuotaExceeded
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeQuotaExceeded:
		return "quota_exceeded"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// SearchOutcome is the single parsed result of a search call.
// Results is set for OutcomeSuccess; Message carries the server detail for
// OutcomeQuotaExceeded (possibly empty) and a diagnostic for OutcomeFailure.
type SearchOutcome struct {
	Kind    OutcomeKind
	Results []SearchResultAddress
	Message string
}

// ParseOutcome turns a raw HTTP status and body into a SearchOutcome. It is
// the only place that knows about status codes.
func ParseOutcome(status int, body []byte) SearchOutcome {
	switch {
	case status == http.StatusTooManyRequests:
		return SearchOutcome{Kind: OutcomeQuotaExceeded, Message: apiclient.DetailOf(body)}
	case status < 200 || status >= 300:
		return SearchOutcome{Kind: OutcomeFailure, Message: http.StatusText(status)}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Results) == 0 {
		// A malformed or missing results array counts as no results.
		return SearchOutcome{Kind: OutcomeEmpty}
	}
	return SearchOutcome{Kind: OutcomeSuccess, Results: resp.Results}
}

// outcomeFromError classifies a transport error that carries no usable body.
func outcomeFromError(err error) SearchOutcome {
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		return ParseOutcome(se.Status, se.Body)
	}
	return SearchOutcome{Kind: OutcomeFailure, Message: strings.TrimSpace(err.Error())}
}
