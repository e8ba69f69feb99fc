// Package service proxies authentication to the remote Casametrix API and
// keeps the resulting token in the browser's session.
package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/clock"
	"casametrix_front/internal/events"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/session"
	"casametrix_front/platform/apperr"
	"casametrix_front/platform/logger"
)

// User is the remote account as reported by /auth/me.
type User struct {
	UserID   string `json:"user_id"`
	OrgID    string `json:"org_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	User
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	api      *apiclient.Client
	sessions *session.Registry
	bus      events.Bus
	clock    clock.Clock
	msgs     *messages.Catalog
	log      *logger.Logger
}

func New(api *apiclient.Client, sessions *session.Registry, bus events.Bus, clk clock.Clock, msgs *messages.Catalog, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if msgs == nil {
		msgs = messages.Default
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Service{api: api, sessions: sessions, bus: bus, clock: clk, msgs: msgs, log: log}
}

// Login exchanges credentials for a token and stores it for browserID.
// Every view of that browser sees the new session.
func (s *Service) Login(ctx context.Context, browserID, email, password string) (User, error) {
	sess, err := s.sessions.Get(ctx, browserID)
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindUnavailable, "session store unavailable", err)
	}

	form := url.Values{"username": {email}, "password": {password}}
	var resp loginResponse
	if err := s.api.PostForm(ctx, "login", "/auth/login", form, &resp); err != nil {
		s.log.AuthEvent("login", email, false, err.Error())
		return User{}, s.remoteError(err, messages.AuthLoginFailed)
	}
	if resp.AccessToken == "" {
		s.log.AuthEvent("login", email, false, "missing access_token")
		return User{}, apperr.Unavailable("Réponse de login invalide (token manquant).")
	}

	if err := sess.SetToken(ctx, resp.AccessToken); err != nil {
		return User{}, apperr.Wrap(apperr.KindUnavailable, "session store unavailable", err)
	}
	s.log.AuthEvent("login", email, true, "")

	user := resp.User
	if me, err := s.fetchMe(ctx, sess); err == nil {
		user = me
	}
	if user.Email == "" {
		user.Email = email
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.UserLoggedIn{
			BaseEvent: events.NewBaseEventAt(s.clock.Now()),
			BrowserID: browserID,
			Subject:   sess.Subject(),
		})
	}
	return user, nil
}

// Register creates the remote account then logs in with it.
func (s *Service) Register(ctx context.Context, browserID, email, password string) (User, error) {
	err := s.api.PostJSON(ctx, "register", "/auth/register", registerRequest{Email: email, Password: password}, nil, nil)
	if err != nil {
		s.log.AuthEvent("register", email, false, err.Error())
		return User{}, s.remoteError(err, messages.AuthRegisterFailed)
	}
	s.log.AuthEvent("register", email, true, "")
	return s.Login(ctx, browserID, email, password)
}

// Me returns the account behind browserID's token. A token the API no
// longer accepts is dropped.
func (s *Service) Me(ctx context.Context, browserID string) (User, error) {
	sess, err := s.sessions.Get(ctx, browserID)
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindUnavailable, "session store unavailable", err)
	}
	if !sess.IsAuthenticated() {
		return User{}, apperr.Unauthorized("not logged in")
	}

	user, err := s.fetchMe(ctx, sess)
	if err != nil {
		if status, ok := apiclient.StatusOf(err); ok && status == http.StatusUnauthorized {
			if clearErr := sess.Clear(ctx); clearErr != nil {
				s.log.Warn("failed to clear rejected token", "error", clearErr)
			}
			return User{}, apperr.Unauthorized("session expired")
		}
		return User{}, s.remoteError(err, "")
	}
	return user, nil
}

// Logout drops browserID's token. It returns the message to show.
func (s *Service) Logout(ctx context.Context, browserID string) (string, error) {
	sess, err := s.sessions.Get(ctx, browserID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "session store unavailable", err)
	}
	if err := sess.Clear(ctx); err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "session store unavailable", err)
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.UserLoggedOut{
			BaseEvent: events.NewBaseEventAt(s.clock.Now()),
			BrowserID: browserID,
		})
	}
	return s.msgs.Get(messages.AuthLoggedOut), nil
}

func (s *Service) fetchMe(ctx context.Context, sess *session.Session) (User, error) {
	var user User
	if err := s.api.GetJSON(ctx, "me", "/auth/me", nil, sess, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// remoteError keeps the API's own detail when it sent one, else falls back
// to the catalog message under fallbackKey.
func (s *Service) remoteError(err error, fallbackKey string) error {
	var statusErr *apiclient.StatusError
	if !errors.As(err, &statusErr) {
		return apperr.Wrap(apperr.KindUnavailable, "authentication service unavailable", err)
	}

	msg := statusErr.Detail
	if msg == "" && fallbackKey != "" {
		msg = s.msgs.Get(fallbackKey)
	}
	if msg == "" {
		msg = http.StatusText(statusErr.Status)
	}
	kind := apperr.FromStatus(statusErr.Status)
	if kind == apperr.KindUnknown {
		kind = apperr.KindBadRequest
	}
	return apperr.Wrap(kind, msg, err)
}
