package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/autocomplete"

	"github.com/stretchr/testify/require"
)

const nominatimPayload = `[
  {"display_name": "8, Boulevard du Port, Paris", "lat": "48.8566", "lon": "2.3522", "importance": 0.6,
   "address": {"road": "Boulevard du Port", "house_number": "8", "postcode": "75004", "city": "Paris"}},
  {"display_name": "No road", "lat": "1", "lon": "1", "address": {"city": "Nowhere"}},
  {"display_name": "Village road", "lat": "45.1", "lon": "4.2",
   "address": {"road": "Chemin des Vignes", "village": "Saint-Joseph"}}
]`

func newTestService(t *testing.T) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "json", q.Get("format"))
		require.Equal(t, "1", q.Get("addressdetails"))
		require.Equal(t, "fr", q.Get("countrycodes"))
		require.Contains(t, r.Header.Get("User-Agent"), "CasametrixFront")
		_, _ = w.Write([]byte(nominatimPayload))
	}))
	t.Cleanup(srv.Close)
	api, err := apiclient.New("nominatim", srv.URL, time.Second, nil)
	require.NoError(t, err)
	return NewService(api, "fr")
}

func TestSuggestBuildsFrenchLabels(t *testing.T) {
	list, err := newTestService(t).Suggest(context.Background(), "8 bd du port", 5)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.Equal(t, "8 Boulevard du Port, 75004 Paris", list[0].Label)
	require.Equal(t, "0-8 Boulevard du Port, 75004 Paris", list[0].ID)
	require.Equal(t, autocomplete.SourceNominatim, list[0].Source)
	p, ok := list[0].Point()
	require.True(t, ok)
	require.InDelta(t, 48.8566, p.Lat, 1e-9)

	require.Equal(t, "Chemin des Vignes, Saint-Joseph", list[1].Label)
	require.Equal(t, "Saint-Joseph", list[1].City)
}

func TestBuildLabelWithoutNumberOrPostcode(t *testing.T) {
	require.Equal(t, "Rue de Rivoli, Paris", buildLabel("Rue de Rivoli", "", "", "Paris"))
	require.Equal(t, "3 Rue X, 69001 Lyon", buildLabel("Rue X", "3", "69001", "Lyon"))
}
