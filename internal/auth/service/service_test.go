package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/session"
	"casametrix_front/platform/apperr"

	"github.com/stretchr/testify/require"
)

const browser = "0b0a6d33-1c2f-4d57-9d0c-3b3d2a1f9e11"

type remote struct {
	meStatus atomic.Int32
	lastForm atomic.Value
}

func newService(t *testing.T, r *remote) (*Service, *session.Registry) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/auth/login":
			require.NoError(t, req.ParseForm())
			r.lastForm.Store(req.PostForm.Encode())
			if req.PostForm.Get("password") != "s3cret-pass" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "opaque-token", "expires_in": 3600, "email": req.PostForm.Get("username")})
		case "/auth/register":
			var body registerRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			if body.Email == "taken@example.com" {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
		case "/auth/me":
			if status := r.meStatus.Load(); status != 0 {
				w.WriteHeader(int(status))
				return
			}
			require.Equal(t, "Bearer opaque-token", req.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(User{UserID: "u1", OrgID: "o1", Email: "ana@example.com", FullName: "Ana"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	api, err := apiclient.New("casametrix", srv.URL, 2*time.Second, nil)
	require.NoError(t, err)
	sessions := session.NewRegistry(session.NewMemoryStore(0), nil, nil)
	t.Cleanup(sessions.Close)
	return New(api, sessions, nil, nil, messages.Default, nil), sessions
}

func TestLoginStoresTokenAndReturnsProfile(t *testing.T) {
	r := &remote{}
	svc, sessions := newService(t, r)

	user, err := svc.Login(context.Background(), browser, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, "u1", user.UserID)
	require.Equal(t, "password=s3cret-pass&username=ana%40example.com", r.lastForm.Load())

	sess, err := sessions.Get(context.Background(), browser)
	require.NoError(t, err)
	token, ok := sess.Token()
	require.True(t, ok)
	require.Equal(t, "opaque-token", token)
}

func TestLoginFailureKeepsRemoteDetail(t *testing.T) {
	svc, sessions := newService(t, &remote{})

	_, err := svc.Login(context.Background(), browser, "ana@example.com", "wrong")
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))
	require.Equal(t, "Invalid credentials", err.Error())

	sess, err := sessions.Get(context.Background(), browser)
	require.NoError(t, err)
	require.False(t, sess.IsAuthenticated())
}

func TestRegisterFailureFallsBackToCatalogMessage(t *testing.T) {
	svc, _ := newService(t, &remote{})

	_, err := svc.Register(context.Background(), browser, "taken@example.com", "s3cret-pass")
	require.True(t, apperr.Is(err, apperr.KindConflict))
	require.Equal(t, messages.Default.Get(messages.AuthRegisterFailed), err.Error())
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newService(t, &remote{})
	user, err := svc.Register(context.Background(), browser, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", user.Email)
}

func TestMeDropsRejectedToken(t *testing.T) {
	r := &remote{}
	svc, sessions := newService(t, r)
	_, err := svc.Login(context.Background(), browser, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)

	r.meStatus.Store(http.StatusUnauthorized)
	_, err = svc.Me(context.Background(), browser)
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))

	sess, err := sessions.Get(context.Background(), browser)
	require.NoError(t, err)
	require.False(t, sess.IsAuthenticated())
}

func TestLogoutClearsSession(t *testing.T) {
	svc, sessions := newService(t, &remote{})
	_, err := svc.Login(context.Background(), browser, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)

	msg, err := svc.Logout(context.Background(), browser)
	require.NoError(t, err)
	require.Equal(t, messages.Default.Get(messages.AuthLoggedOut), msg)

	_, err = svc.Me(context.Background(), browser)
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))

	sess, err := sessions.Get(context.Background(), browser)
	require.NoError(t, err)
	require.False(t, sess.IsAuthenticated())
}
