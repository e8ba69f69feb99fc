// Package messages serves the user-facing strings from an embedded catalog.
package messages

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Stable message keys.
const (
	AutocompleteFailed = "autocomplete.failed"

	SelectionSaved         = "selection.saved"
	SelectionLoginRequired = "selection.login_required"
	SelectionFailed        = "selection.failed"

	GeolocationUnsupported      = "geolocation.unsupported"
	GeolocationPermissionDenied = "geolocation.permission_denied"
	GeolocationUnavailable      = "geolocation.unavailable"
	GeolocationTimeout          = "geolocation.timeout"
	GeolocationUnexpected       = "geolocation.unexpected"
	GeolocationFound            = "geolocation.found"

	SearchEmptyQuery       = "search.empty_query"
	SearchQuotaExceeded    = "search.quota_exceeded"
	SearchQuotaBlocked     = "search.quota_blocked"
	SearchNoResults        = "search.no_results"
	SearchResults          = "search.results"
	SearchFailed           = "search.failed"
	SearchQuotaLabelGuest  = "search.quota_label_guest"
	SearchQuotaLabelMember = "search.quota_label_member"

	MapPositionPopup = "map.position_popup"
	MapSavedPopup    = "map.saved_popup"

	AuthLoginFailed    = "auth.login_failed"
	AuthRegisterFailed = "auth.register_failed"
	AuthLoggedOut      = "auth.logged_out"
)

//go:embed messages.yaml
var catalogYAML []byte

// Catalog is a flat key to message map.
type Catalog struct {
	entries map[string]string
}

// Default is the embedded French catalog.
var Default = MustParse(catalogYAML)

// Parse reads a nested YAML document into dotted keys.
func Parse(data []byte) (*Catalog, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}
	c := &Catalog{entries: make(map[string]string)}
	if err := flatten("", tree, c.entries); err != nil {
		return nil, err
	}
	return c, nil
}

// MustParse is Parse that panics on malformed input.
func MustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the message for key, or key itself when missing.
func (c *Catalog) Get(key string) string {
	if c == nil {
		return key
	}
	if msg, ok := c.entries[key]; ok {
		return msg
	}
	return key
}

// Format applies fmt.Sprintf to the message for key.
func (c *Catalog) Format(key string, args ...any) string {
	return fmt.Sprintf(c.Get(key), args...)
}

// Keys lists every key in sorted order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func flatten(prefix string, node map[string]any, out map[string]string) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch typed := v.(type) {
		case string:
			out[key] = typed
		case map[string]any:
			if err := flatten(key, typed, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("message %q: unsupported value %T", key, v)
		}
	}
	return nil
}
