package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"LeoneAI/internal/domain/models"
	drepo "LeoneAI/internal/domain/repository"
	pkghttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"
)

// Authenticator is the part of the backend the session manager talks to.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	MeWithToken(ctx context.Context, token string) (*models.User, error)
}

// SessionManager is the single writer of the client session. It persists
// tokens and the user record, and implements pkg/http.TokenSource so the
// backend client can read tokens and report refresh outcomes.
type SessionManager struct {
	mu      sync.RWMutex
	session models.Session
	closed  bool

	store   drepo.SessionStore
	auth    Authenticator
	log     *applogger.Logger
	expired chan error
}

var _ pkghttp.TokenSource = (*SessionManager)(nil)

func NewSessionManager(store drepo.SessionStore, auth Authenticator, l *applogger.Logger) *SessionManager {
	if l == nil {
		l = applogger.Nop()
	}
	return &SessionManager{
		store:   store,
		auth:    auth,
		log:     l.Named("session"),
		expired: make(chan error, 1),
	}
}

// Restore loads a previously persisted session. A token without a readable
// user record is treated as corrupt and cleared.
func (m *SessionManager) Restore(ctx context.Context) error {
	access, err := m.readString(ctx, drepo.KeyAccessToken)
	if err != nil {
		return err
	}
	if access == "" {
		return nil
	}
	refresh, err := m.readString(ctx, drepo.KeyRefreshToken)
	if err != nil {
		return err
	}

	var user models.User
	raw, err := m.store.Get(ctx, drepo.KeyUser)
	switch {
	case errors.Is(err, drepo.ErrNotFound):
		m.log.Warn("persisted token has no user record, clearing")
		return m.store.Delete(ctx, drepo.SessionKeys...)
	case err != nil:
		return fmt.Errorf("read user: %w", err)
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		m.log.Warn("persisted user record is corrupt, clearing", applogger.Error(err))
		return m.store.Delete(ctx, drepo.SessionKeys...)
	}

	m.mu.Lock()
	m.session = models.Session{AccessToken: access, RefreshToken: refresh, User: &user}
	m.mu.Unlock()

	m.log.Info("session restored", applogger.String("username", user.Username))
	return nil
}

// Login authenticates and persists the session. When the response omits the
// user record exactly one GET /users/me is made with the new token.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*models.User, error) {
	resp, err := m.auth.Login(ctx, models.Credentials{Username: username, Password: password})
	if err != nil {
		m.log.Info("login failed", applogger.String("username", username), applogger.String("code", pkghttp.CodeOf(err)))
		return nil, err
	}

	user := resp.User
	if user == nil {
		if user, err = m.auth.MeWithToken(ctx, resp.AccessToken); err != nil {
			return nil, fmt.Errorf("fetch user: %w", err)
		}
	}

	next := models.Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, User: user.Clone()}
	if err := m.persist(ctx, next); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.session = next
	m.mu.Unlock()

	m.log.Info("logged in",
		applogger.String("username", user.Username),
		applogger.String("plan", string(user.PlanType)),
		applogger.Bool("refreshable", next.RefreshToken != ""),
	)
	return user.Clone(), nil
}

// Register creates an account without logging in.
func (m *SessionManager) Register(ctx context.Context, req models.RegisterRequest) error {
	if _, err := m.auth.Register(ctx, req); err != nil {
		return err
	}
	m.log.Info("registered", applogger.String("username", req.Username))
	return nil
}

// Logout clears memory and every persisted session key. Safe to call repeatedly.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.session = models.Session{}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, drepo.SessionKeys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.log.Info("logged out")
	return nil
}

// UpdateUser merges a partial user locally and persists it. No server round trip.
func (m *SessionManager) UpdateUser(ctx context.Context, patch models.UserPatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.User == nil {
		return nil, pkghttp.AuthExpiredError(errors.New("not logged in"))
	}
	next := m.session.User.Clone()
	patch.Apply(next)

	raw, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	if err := m.store.Set(ctx, drepo.KeyUser, raw); err != nil {
		return nil, fmt.Errorf("persist user: %w", err)
	}
	m.session.User = next
	return next.Clone(), nil
}

// User returns a copy of the current user, or nil.
func (m *SessionManager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.User.Clone()
}

func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.AccessToken != ""
}

func (m *SessionManager) IsSuperuser() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.User != nil && m.session.User.IsSuperuser
}

func (m *SessionManager) IsPremium() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.User.IsPremium()
}

func (m *SessionManager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.AccessToken
}

func (m *SessionManager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.RefreshToken
}

// UpdateTokens stores rotated tokens. An empty refresh keeps the current one.
func (m *SessionManager) UpdateTokens(ctx context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.User == nil {
		return errors.New("no active session")
	}
	if refresh == "" {
		refresh = m.session.RefreshToken
	}
	if err := m.store.Set(ctx, drepo.KeyAccessToken, []byte(access)); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if refresh != "" {
		if err := m.store.Set(ctx, drepo.KeyRefreshToken, []byte(refresh)); err != nil {
			return fmt.Errorf("persist refresh token: %w", err)
		}
	}
	m.session.AccessToken = access
	m.session.RefreshToken = refresh
	m.log.Debug("tokens rotated")
	return nil
}

// Invalidate is the forced logout path: the session is destroyed and the
// cause is delivered on Expired so the caller can redirect to login.
func (m *SessionManager) Invalidate(ctx context.Context, cause error) {
	if err := m.Logout(ctx); err != nil {
		m.log.Error("forced logout could not clear storage", applogger.Error(err))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.expired <- cause:
	default:
	}
}

// Expired delivers the cause of each forced logout. Closed by Close.
func (m *SessionManager) Expired() <-chan error {
	return m.expired
}

// Close stops delivering expiry notifications. Persisted state is kept.
func (m *SessionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.expired)
	}
	return nil
}

func (m *SessionManager) persist(ctx context.Context, s models.Session) error {
	raw, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := m.store.Set(ctx, drepo.KeyAccessToken, []byte(s.AccessToken)); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if s.RefreshToken != "" {
		err = m.store.Set(ctx, drepo.KeyRefreshToken, []byte(s.RefreshToken))
	} else {
		err = m.store.Delete(ctx, drepo.KeyRefreshToken)
	}
	if err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	if err := m.store.Set(ctx, drepo.KeyUser, raw); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func (m *SessionManager) readString(ctx context.Context, key string) (string, error) {
	b, err := m.store.Get(ctx, key)
	if errors.Is(err, drepo.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return string(b), nil
}
