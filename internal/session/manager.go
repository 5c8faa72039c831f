package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"snooptrade/observability"
)

// Invalidation reasons
const (
	ReasonLogout       = "logout"
	ReasonUnauthorized = "unauthorized"
)

// ManagerConfig configures cookie handling
type ManagerConfig struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

// Manager ties the browser cookie to a stored session
type Manager struct {
	store   Store
	codec   *CookieCodec
	cfg     ManagerConfig
	metrics *observability.Metrics
}

// NewManager creates a Manager over store
func NewManager(store Store, cfg ManagerConfig, metrics *observability.Metrics) *Manager {
	return &Manager{
		store:   store,
		codec:   NewCookieCodec(cfg.Secret),
		cfg:     cfg,
		metrics: metrics,
	}
}

// Store returns the underlying store
func (m *Manager) Store() Store {
	return m.store
}

// Load returns the session named by the request cookie.
// Missing, tampered and expired cookies all yield ErrNotFound.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return nil, ErrNotFound
	}
	id, err := m.codec.Decode(cookie.Value)
	if err != nil {
		return nil, ErrNotFound
	}
	return m.store.Get(r.Context(), id)
}

// Start creates a fresh anonymous session and sets its cookie
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter) (*Session, error) {
	s := New(m.cfg.TTL)
	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := m.writeCookie(w, s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadOrStart returns the current session, starting one if needed
func (m *Manager) LoadOrStart(w http.ResponseWriter, r *http.Request) (*Session, error) {
	s, err := m.Load(r)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return m.Start(r.Context(), w)
}

// Save persists changes to s
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Login replaces prev with a new session holding token.
// The id changes on login so a pre-login cookie cannot be replayed.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, prev *Session, token string) (*Session, error) {
	s := New(m.cfg.TTL)
	if prev != nil {
		s.Selection = prev.Selection
		if err := m.store.Delete(ctx, prev.ID); err != nil {
			observability.WithSession(prev.ID).Warn("failed to delete pre-login session", "error", err)
		}
	}
	s.SetToken(token)

	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := m.writeCookie(w, s); err != nil {
		return nil, err
	}
	m.metrics.SessionAuthenticated()
	observability.WithSession(s.ID).Info("session authenticated")
	return s, nil
}

// Destroy clears the token, deletes the session and expires the cookie
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session, reason string) error {
	m.clearCookie(w)
	if s == nil {
		return nil
	}

	hadToken := s.Authenticated()
	s.ClearToken()
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if hadToken {
		m.metrics.RecordSessionInvalidation(reason)
	}
	observability.WithSession(s.ID).Info("session destroyed", "reason", reason)
	return nil
}

func (m *Manager) writeCookie(w http.ResponseWriter, s *Session) error {
	value, err := m.codec.Encode(s.ID, s.ExpiresAt)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
