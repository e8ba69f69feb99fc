// Package search drives the quota-aware golden index search form.
package search

import (
	"casametrix_front/internal/golden"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/toast"
)

// State is the render state of the search form.
type State struct {
	Query         string                       `json:"query"`
	Results       []golden.SearchResultAddress `json:"results"`
	Loading       bool                         `json:"loading"`
	Error         string                       `json:"error,omitempty"`
	QuotaExceeded bool                         `json:"quotaExceeded"`
}

// Notice is a toast a transition asks the caller to publish.
type Notice struct {
	Kind    toast.Kind
	Message string
}

// Transition applies a search outcome to s. It has no side effects; the
// returned notice is for the caller to publish.
func Transition(s State, out golden.SearchOutcome, msgs *messages.Catalog) (State, Notice) {
	s.Loading = false
	switch out.Kind {
	case golden.OutcomeSuccess:
		s.Results = out.Results
		s.Error = ""
		s.QuotaExceeded = false
		return s, Notice{Kind: toast.KindSuccess, Message: msgs.Format(messages.SearchResults, len(out.Results))}

	case golden.OutcomeEmpty:
		s.Results = []golden.SearchResultAddress{}
		s.Error = ""
		s.QuotaExceeded = false
		return s, Notice{Kind: toast.KindInfo, Message: msgs.Get(messages.SearchNoResults)}

	case golden.OutcomeQuotaExceeded:
		msg := out.Message
		if msg == "" {
			msg = msgs.Get(messages.SearchQuotaExceeded)
		}
		s.Results = []golden.SearchResultAddress{}
		s.Error = msg
		s.QuotaExceeded = true
		return s, Notice{Kind: toast.KindError, Message: msg}

	default:
		msg := msgs.Get(messages.SearchFailed)
		s.Results = []golden.SearchResultAddress{}
		s.Error = msg
		return s, Notice{Kind: toast.KindError, Message: msg}
	}
}
