package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-tourbook/api"
	errs "github.com/jrsteele09/go-tourbook/internal/errors"
)

// Auth endpoint paths.
const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	GooglePath   = "/auth/google"
	RefreshPath  = "/auth/refresh"
	ProfilePath  = "/auth/profile"
)

// Manager owns the single mutable Session. It is the only component that
// mutates it; everything else reads tokens through the api.TokenAuthority
// interface the Manager implements.
type Manager struct {
	client *api.Client
	store  TokenStore
	log    zerolog.Logger

	mu      sync.RWMutex
	session *Session

	refreshMu sync.Mutex
	inflight  *refreshCall
}

// refreshCall is a single in-flight token refresh. Concurrent callers wait
// on done and share the same result.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithLogger sets the session manager's logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager initialises a Manager and binds it to the client so the 401
// recovery stage consults this session.
func NewManager(client *api.Client, store TokenStore, options ...ManagerOption) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] client is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] token store is required")
	}

	m := &Manager{
		client: client,
		store:  store,
		log:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}

	client.Bind(m)
	return m, nil
}

var _ api.TokenAuthority = (*Manager)(nil)

// AccessToken implements api.TokenAuthority.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// RefreshToken implements api.TokenAuthority.
func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.RefreshToken
}

// CurrentUser returns the profile of the logged-in user, or nil.
func (m *Manager) CurrentUser() *UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	user := m.session.User
	return &user
}

// Current returns a copy of the held session, or nil when logged out.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	copied := *m.session
	return &copied
}

type credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type googleSignInRequest struct {
	IDToken   string `json:"idToken"`
	GoogleID  string `json:"googleId,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	PhotoURL  string `json:"photoUrl,omitempty"`
}

type authResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

// Login authenticates with email and password. A 4xx from the backend maps
// to ErrInvalidCredentials with the server message attached; transport
// failures map to ErrNetwork. On success the new session is persisted and
// held.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp authResponse
	if err := m.client.Post(ctx, LoginPath, credentials{Email: email, Password: password}, &resp); err != nil {
		if errs.Is(err, errs.ErrNetwork) {
			return nil, err
		}
		if status := api.StatusCode(err); status >= 400 && status < 500 {
			return nil, errors.Wrap(errs.ErrInvalidCredentials, serverDetail(err))
		}
		return nil, errors.Wrap(err, "[Manager.Login] login request")
	}
	return m.adoptSession(resp), nil
}

// Register creates an account. A 4xx (e.g. duplicate email) maps to
// ErrValidation with the server message attached.
func (m *Manager) Register(ctx context.Context, email, password, firstName, lastName string) (*Session, error) {
	body := credentials{Email: email, Password: password, FirstName: firstName, LastName: lastName}
	var resp authResponse
	if err := m.client.Post(ctx, RegisterPath, body, &resp); err != nil {
		if errs.Is(err, errs.ErrNetwork) {
			return nil, err
		}
		if status := api.StatusCode(err); status >= 400 && status < 500 {
			return nil, errors.Wrap(errs.ErrValidation, serverDetail(err))
		}
		return nil, errors.Wrap(err, "[Manager.Register] register request")
	}
	return m.adoptSession(resp), nil
}

// GoogleSignIn exchanges a verified Google ID token for a Tourbook session.
// An empty token fails locally with ErrMissingIdentityToken before any
// network call is made.
func (m *Manager) GoogleSignIn(ctx context.Context, idToken string, claims ProfileClaims) (*Session, error) {
	if idToken == "" {
		return nil, errs.ErrMissingIdentityToken
	}

	body := googleSignInRequest{
		IDToken:   idToken,
		GoogleID:  claims.Subject,
		Email:     claims.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
		PhotoURL:  claims.Picture,
	}
	var resp authResponse
	if err := m.client.Post(ctx, GooglePath, body, &resp); err != nil {
		if errs.Is(err, errs.ErrNetwork) {
			return nil, err
		}
		if status := api.StatusCode(err); status >= 400 && status < 500 {
			return nil, errors.Wrap(errs.ErrAuthProviderRejected, serverDetail(err))
		}
		return nil, errors.Wrap(err, "[Manager.GoogleSignIn] sign-in request")
	}
	return m.adoptSession(resp), nil
}

// Logout clears the stored session entries and the in-memory session. It
// never fails observably; storage errors are logged and swallowed because
// the in-memory session must become empty regardless.
func (m *Manager) Logout() {
	if err := m.store.Remove(KeyAccessToken, KeyRefreshToken, KeyUser); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear stored session")
	}

	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
}

// LoadStoredSession reads the three stored keys and holds a Session only if
// all of them are present and well-formed. Otherwise it returns nil and does
// not mutate storage. Storage read failures are logged and treated as
// absent values.
func (m *Manager) LoadStoredSession() *Session {
	accessToken := m.readKey(KeyAccessToken)
	refreshToken := m.readKey(KeyRefreshToken)
	userJSON := m.readKey(KeyUser)

	if accessToken == "" || refreshToken == "" || userJSON == "" {
		return nil
	}

	var user UserProfile
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		m.log.Warn().Err(err).Msg("stored user profile is malformed")
		return nil
	}

	if info, err := InspectAccessToken(accessToken); err == nil && info.Expired(NowTimeFunc()) {
		m.log.Debug().Time("expired_at", info.ExpiresAt).Msg("stored access token has expired, will refresh on first use")
	}

	loaded := &Session{AccessToken: accessToken, RefreshToken: refreshToken, User: user}

	m.mu.Lock()
	m.session = loaded
	m.mu.Unlock()

	copied := *loaded
	return &copied
}

func (m *Manager) readKey(key string) string {
	value, err := m.store.Get(key)
	if err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("failed to read stored session key")
		return ""
	}
	return value
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshAccessToken obtains a new access token using the held refresh
// token. Concurrent callers converge on a single in-flight refresh and all
// receive its result. On backend rejection the session is logged out before
// ErrSessionExpired propagates, so callers never need to log out themselves.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	if m.inflight != nil {
		call := m.inflight
		m.refreshMu.Unlock()
		<-call.done
		return call.token, call.err
	}
	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	m.refreshMu.Unlock()

	call.token, call.err = m.doRefresh(ctx)

	m.refreshMu.Lock()
	m.inflight = nil
	m.refreshMu.Unlock()
	close(call.done)

	return call.token, call.err
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	refreshToken := m.RefreshToken()
	if refreshToken == "" {
		m.Logout()
		return "", errs.ErrNoRefreshToken
	}

	var resp refreshResponse
	if err := m.client.Post(ctx, RefreshPath, refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		if errs.Is(err, errs.ErrNetwork) {
			// A transport blip is not proof the refresh token is dead; keep
			// the session.
			return "", err
		}
		m.log.Info().Msg("token refresh rejected, logging out")
		m.Logout()
		return "", errors.Wrap(errs.ErrSessionExpired, serverDetail(err))
	}

	if err := m.store.Set(KeyAccessToken, resp.AccessToken); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist refreshed access token")
	}
	if resp.RefreshToken != "" {
		if err := m.store.Set(KeyRefreshToken, resp.RefreshToken); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist rotated refresh token")
		}
	}

	m.mu.Lock()
	if m.session != nil {
		m.session.AccessToken = resp.AccessToken
		if resp.RefreshToken != "" {
			m.session.RefreshToken = resp.RefreshToken
		}
	}
	m.mu.Unlock()

	return resp.AccessToken, nil
}

// VerifySession probes the backend with the current credentials. A 401 is
// recovered by at most one refresh (via the client's 401 recovery); a failed
// refresh yields false after the implicit logout. Any other failure class,
// network errors included, yields true: a transient blip is not proof of
// invalid credentials.
func (m *Manager) VerifySession(ctx context.Context) bool {
	if m.AccessToken() == "" || m.RefreshToken() == "" {
		return false
	}

	var profile UserProfile
	err := m.client.Get(ctx, ProfilePath, &profile)
	if err == nil {
		return true
	}
	if errs.Is(err, errs.ErrSessionExpired) || errs.Is(err, errs.ErrNoRefreshToken) {
		return false
	}
	return true
}

// adoptSession persists the three session fields and holds the new session.
// Storage write failures are logged; the in-memory session is held
// regardless so the process keeps working until restart.
func (m *Manager) adoptSession(resp authResponse) *Session {
	adopted := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	}

	if err := m.store.Set(KeyAccessToken, adopted.AccessToken); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist access token")
	}
	if err := m.store.Set(KeyRefreshToken, adopted.RefreshToken); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist refresh token")
	}
	if userJSON, err := json.Marshal(adopted.User); err == nil {
		if err := m.store.Set(KeyUser, string(userJSON)); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist user profile")
		}
	}

	m.mu.Lock()
	m.session = adopted
	m.mu.Unlock()

	copied := *adopted
	return &copied
}

// serverDetail extracts the server-provided message from an error for
// verbatim display, falling back to the error text.
func serverDetail(err error) string {
	var apiErr *api.Error
	if errs.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
