package views

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"casametrix_front/internal/autocomplete"
	"casametrix_front/internal/geolocation"
	"casametrix_front/internal/mapsync"
	"casametrix_front/internal/searchview"
	"casametrix_front/platform/httpkit"
	"casametrix_front/platform/logger"
	"casametrix_front/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine  *gin.Engine
	manager *searchview.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	manager := searchview.NewManager(searchview.Deps{
		Provider: autocomplete.ProviderFunc(func(ctx context.Context, query string, limit int) ([]autocomplete.Suggestion, error) {
			return autocomplete.AssignIDs([]autocomplete.Suggestion{{Label: "Rue de Rivoli 75001 Paris"}}), nil
		}),
		Settings: searchview.Settings{MinChars: 3, ToastTTL: 5 * time.Second},
	})
	t.Cleanup(manager.Close)

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	v1.Use(httpkit.BrowserSession("casamx_session", time.Hour, false))
	NewHandler(manager, validator.New(), logger.NewDiscard()).RegisterRoutes(v1.Group("/views"))
	return &testServer{engine: engine, manager: manager}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) mount(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/views", map[string]string{"container": "map"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp MountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ViewID)
	require.Equal(t, resp.ViewID, resp.Snapshot.ViewID)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return resp.ViewID, cookies[0]
}

func decodeCommand(t *testing.T, rec *httptest.ResponseRecorder) CommandResponse {
	t.Helper()
	var resp CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestMountQueryAndUnmount(t *testing.T) {
	s := newTestServer(t)
	id, cookie := s.mount(t)

	rec := s.do(t, http.MethodPut, "/api/v1/views/"+id+"/query", QueryRequest{Query: "rue de rivoli"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "rue de rivoli", decodeCommand(t, rec).Snapshot.Autocomplete.Query)

	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/api/v1/views/"+id, nil, cookie)
		var snap searchview.Snapshot
		_ = json.Unmarshal(rec.Body.Bytes(), &snap)
		return len(snap.Autocomplete.Suggestions) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec = s.do(t, http.MethodDelete, "/api/v1/views/"+id, nil, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/views/"+id, nil, cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewsAreInvisibleToOtherBrowsers(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.mount(t)

	rec := s.do(t, http.MethodGet, "/api/v1/views/"+id, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectValidation(t *testing.T) {
	s := newTestServer(t)
	id, cookie := s.mount(t)

	rec := s.do(t, http.MethodPost, "/api/v1/views/"+id+"/select", map[string]any{}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/views/"+id+"/select", map[string]any{"index": 0}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code, "no suggestion yet")
}

func TestLocateWithBrowserReport(t *testing.T) {
	s := newTestServer(t)
	id, cookie := s.mount(t)

	rec := s.do(t, http.MethodPost, "/api/v1/views/"+id+"/locate", map[string]any{"latitude": 48.86, "longitude": 2.35}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeCommand(t, rec).Accepted)

	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/api/v1/views/"+id, nil, cookie)
		var snap searchview.Snapshot
		_ = json.Unmarshal(rec.Body.Bytes(), &snap)
		return snap.Geolocation.Status == geolocation.StatusResolved && snap.Map.Initialized &&
			len(snap.Map.Markers) == 1 && snap.Map.Markers[0].Source == mapsync.SourceDevice
	}, 2*time.Second, 10*time.Millisecond)

	rec = s.do(t, http.MethodPost, "/api/v1/views/"+id+"/locate", map[string]any{"latitude": 120.0, "longitude": 2.35}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLocateWithoutBodyAndNoLocatorIsUnsupported(t *testing.T) {
	s := newTestServer(t)
	id, cookie := s.mount(t)

	rec := s.do(t, http.MethodPost, "/api/v1/views/"+id+"/locate", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCommand(t, rec)
	require.False(t, resp.Accepted)
	require.Equal(t, geolocation.ReasonUnsupported, resp.Snapshot.Geolocation.Reason)
	require.Len(t, resp.Snapshot.Toasts, 1)

	toastID := resp.Snapshot.Toasts[0].ID
	rec = s.do(t, http.MethodDelete, "/api/v1/views/"+id+"/toasts/"+jsonNumber(toastID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodeCommand(t, rec).Snapshot.Toasts)
}

func TestBlankSearchIsAcceptedButNotSent(t *testing.T) {
	s := newTestServer(t)
	id, cookie := s.mount(t)

	rec := s.do(t, http.MethodPost, "/api/v1/views/"+id+"/search", SearchRequest{Query: "  "}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCommand(t, rec)
	require.False(t, resp.Accepted)
	require.NotEmpty(t, resp.Snapshot.Search.Error)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
