// Package sessions owns the signed-in state of the client: it restores a stored session at
// start up, signs in, registers, signs out and tells subscribers when any of that changes.
package sessions

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/weeb-client/admin"
	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/client"
	"github.com/jrsteele09/weeb-client/content"
	apperrors "github.com/jrsteele09/weeb-client/internal/errors"
	"github.com/jrsteele09/weeb-client/sessions/events"
	"github.com/jrsteele09/weeb-client/token"
	"github.com/jrsteele09/weeb-client/users"
)

const DefaultLoginFailure = "login failed, please check your credentials"

// LoginError is returned by Login. Message is fit to show to the user.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	return e.Message
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// State is derived from the credential store every time it is asked for.
type State struct {
	User          *users.Profile
	Authenticated bool
	Active        bool
	Privileged    bool
	Moderator     bool

	// AccessExpiry is read from the access token when it is a JWT. It is informational;
	// renewal only ever happens in response to a 401.
	AccessExpiry time.Time
}

// Session is the single owner of the credential store for the process.
type Session struct {
	store   *token.Store
	api     *client.Pipeline
	content *content.Service
	admin   *admin.Service
	bus     *events.Bus

	ready     chan struct{}
	readyOnce sync.Once

	httpClient *http.Client
}

// Option defines a function type to modify the Session instance.
type Option func(*Session)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.httpClient = c
	}
}

// WithBus publishes session events on bus instead of a private one.
func WithBus(bus *events.Bus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// New creates a Session for the API at baseURL whose durable credentials live in repo.
// Call Initialize before relying on State.
func New(baseURL string, repo token.Repo, options ...Option) *Session {
	s := &Session{
		store: token.NewStore(repo),
		ready: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.bus == nil {
		s.bus = events.NewBus()
	}

	pipelineOptions := []client.Option{client.WithInvalidator(s)}
	if s.httpClient != nil {
		pipelineOptions = append(pipelineOptions, client.WithHTTPClient(s.httpClient))
	}
	s.api = client.New(baseURL, s.store, pipelineOptions...)
	s.content = content.NewService(s.api)
	s.admin = admin.NewService(s.api)
	return s
}

func (s *Session) API() *client.Pipeline {
	return s.api
}

func (s *Session) Content() *content.Service {
	return s.content
}

// Admin is only usable by staff accounts.
func (s *Session) Admin() *admin.Service {
	return s.admin
}

func (s *Session) Events() *events.Bus {
	return s.bus
}

// Ready is closed once Initialize has finished, whatever its outcome.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Initialize restores a stored session by exchanging the stored refresh credential for a
// new access credential. A rejected or incomplete stored session is discarded and the
// session starts signed out; only a failure to discard it is returned.
func (s *Session) Initialize(ctx context.Context) error {
	defer s.readyOnce.Do(func() { close(s.ready) })
	defer s.publish(events.Event{Type: events.EventStateChanged})

	refresh := s.store.GetRefresh()
	user := s.store.GetUser()
	if refresh == "" && user == nil {
		return nil
	}
	if refresh == "" || user == nil {
		log.Warn().Bool("has_refresh", refresh != "").Bool("has_user", user != nil).Msg("Discarding incomplete stored session")
		return errors.Wrap(s.store.Clear(), "[Initialize] failed to clear stored session")
	}

	generation := s.store.Generation()
	resp, err := s.api.RefreshToken(ctx, refresh)
	if err == nil && resp.Access == "" {
		err = apperrors.ErrEmptyToken
	}
	if err != nil {
		log.Err(err).Str("email", user.Email).Msg("Failed to restore session, starting signed out")
		_, clearErr := s.store.ClearIfCurrent(generation)
		return errors.Wrap(clearErr, "[Initialize] failed to clear stored session")
	}

	applied, err := s.store.UpdateIfCurrent(generation, resp.Access, resp.Refresh)
	if err != nil {
		return errors.Wrap(err, "[Initialize] failed to persist rotated refresh token")
	}
	if !applied {
		log.Info().Msg("Session changed while restoring, keeping the newer one")
		return nil
	}
	log.Info().Str("email", user.Email).Msg("Session restored")
	return nil
}

// Login exchanges email and password for credentials and stores them. On failure the
// session is left exactly as it was and a *LoginError is returned.
func (s *Session) Login(ctx context.Context, email, password string) (*users.Profile, error) {
	req := &client.Request{
		Method:      http.MethodPost,
		Path:        apimodel.RouteAuthLogin,
		Body:        apimodel.LoginRequest{Email: email, Password: password},
		SkipRefresh: true,
		Anonymous:   true,
	}

	var out apimodel.LoginResponse
	if err := s.api.Do(ctx, req, &out); err != nil {
		log.Err(err).Str("email", email).Msg("Login failed")
		return nil, newLoginError(err)
	}
	if out.Access == "" || out.Refresh == "" || out.User == nil {
		return nil, &LoginError{Message: DefaultLoginFailure, Err: apperrors.ErrEmptyToken}
	}

	if err := s.store.Replace(out.Access, out.Refresh, out.User); err != nil {
		return nil, errors.Wrap(err, "[Login] failed to persist session")
	}

	log.Info().Str("email", out.User.Email).Msg("Logged in")
	s.publish(events.Event{Type: events.EventStateChanged})
	return out.User.Clone(), nil
}

func newLoginError(err error) *LoginError {
	le := &LoginError{Message: DefaultLoginFailure, Err: err}
	var se *client.StatusError
	if errors.As(err, &se) {
		if se.Detail != "" {
			le.Message = se.Detail
		}
		if se.StatusCode == http.StatusUnauthorized {
			le.Err = fmt.Errorf("%w: %w", apperrors.ErrInvalidCredentials, err)
		}
	}
	return le
}

// Register creates an account. It does not sign in: new accounts must be activated by an
// administrator before they can log in. Field problems, found locally or by the API, are
// returned as *apimodel.FieldErrors.
func (s *Session) Register(ctx context.Context, reg apimodel.RegisterRequest) (*users.Profile, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	req := &client.Request{
		Method:      http.MethodPost,
		Path:        apimodel.RouteAuthRegister,
		Body:        reg,
		SkipRefresh: true,
		Anonymous:   true,
	}

	var out users.Profile
	if err := s.api.Do(ctx, req, &out); err != nil {
		var se *client.StatusError
		if errors.As(err, &se) && se.Fields != nil && !se.Fields.Empty() {
			return nil, se.Fields
		}
		return nil, errors.Wrap(err, "[Register] request failed")
	}
	log.Info().Str("email", out.Email).Bool("active", out.IsActive).Msg("Account registered")
	return &out, nil
}

// Logout tells the API to revoke the refresh credential and then clears local state. The
// API call is best effort: local state is cleared even when it fails. The only error
// returned is a failure to clear durable storage.
func (s *Session) Logout(ctx context.Context) error {
	if refresh := s.store.GetRefresh(); refresh != "" {
		req := &client.Request{
			Method:      http.MethodPost,
			Path:        apimodel.RouteAuthLogout,
			Body:        apimodel.LogoutRequest{Refresh: refresh},
			SkipRefresh: true,
		}
		if err := s.api.Do(ctx, req, nil); err != nil {
			log.Err(err).Msg("Logout request failed, clearing local session anyway")
		}
	}

	err := s.store.Clear()
	s.publish(events.Event{Type: events.EventStateChanged})
	return errors.Wrap(err, "[Logout] failed to clear session")
}

// Me fetches the signed-in user's profile and stores it.
func (s *Session) Me(ctx context.Context) (*users.Profile, error) {
	if !s.store.HasSession() {
		return nil, apperrors.ErrNotAuthenticated
	}

	generation := s.store.Generation()
	var out users.Profile
	if err := s.api.Do(ctx, client.NewRequest(http.MethodGet, apimodel.RouteAuthMe, nil), &out); err != nil {
		return nil, errors.Wrap(err, "[Me] request failed")
	}
	applied, err := s.store.SetUserIfCurrent(generation, &out)
	if err != nil {
		return nil, errors.Wrap(err, "[Me] failed to persist profile")
	}
	if !applied {
		return nil, apperrors.ErrSessionInvalidated
	}
	s.publish(events.Event{Type: events.EventStateChanged})
	return &out, nil
}

func (s *Session) State() State {
	user := s.store.GetUser()
	if user == nil {
		return State{}
	}
	access := s.store.AccessToken()
	state := State{
		User:          user,
		Authenticated: access != nil,
		Active:        user.IsActive,
		Privileged:    user.IsStaff,
		Moderator:     user.IsModerator(),
	}
	if access != nil {
		state.AccessExpiry = access.Expiry
	}
	return state
}

// SessionInvalidated is called by the refresh coordinator after it has cleared the store.
func (s *Session) SessionInvalidated(cause error) {
	log.Warn().Err(cause).Msg("Session invalidated, signing out")
	s.publish(events.Event{Type: events.EventForcedLogout, Cause: cause})
	s.publish(events.Event{Type: events.EventStateChanged})
}

func (s *Session) publish(e events.Event) {
	s.bus.Publish(e)
}
