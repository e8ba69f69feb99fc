package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   []byte
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("status %d", e.Status)
}

// DecodeError is a 2xx response whose body was not the expected JSON.
type DecodeError struct {
	Service   string
	Operation string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: decode body: %v", e.Service, e.Operation, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return 0, false
}

// DetailOf extracts a human readable message from an error body shaped as
// {"detail": "..."}, {"detail": {"message": "..."}} or {"message": "..."}.
func DetailOf(body []byte) string {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if len(envelope.Detail) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Detail, &nested); err == nil && nested.Message != "" {
			return strings.TrimSpace(nested.Message)
		}
	}
	return strings.TrimSpace(envelope.Message)
}
