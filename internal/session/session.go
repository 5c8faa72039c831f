// Package session keeps per-browser state on the server: the upstream bearer
// token and the dashboard selection. Browsers only hold a signed cookie
// naming their session.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"snooptrade/models"
)

// ErrNotFound is returned when a session does not exist or has expired
var ErrNotFound = errors.New("session not found")

// Selection is the dashboard state carried between requests
type Selection struct {
	Company  string            `json:"company,omitempty"`
	Window   models.TimeWindow `json:"window,omitempty"`
	Sort     string            `json:"sort,omitempty"`
	Desc     bool              `json:"desc,omitempty"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	LogScale bool              `json:"log_scale,omitempty"`
}

// Session is one browser's server-side state
type Session struct {
	ID          string    `json:"id"`
	AccessToken string    `json:"access_token,omitempty"`
	Selection   Selection `json:"selection"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// New creates an anonymous session valid for ttl
func New(ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// SetToken stores the bearer token issued at login
func (s *Session) SetToken(token string) {
	s.AccessToken = token
}

// ClearToken forgets the bearer token
func (s *Session) ClearToken() {
	s.AccessToken = ""
}

// Token returns the bearer token, if any
func (s *Session) Token() (string, bool) {
	if s == nil || s.AccessToken == "" {
		return "", false
	}
	return s.AccessToken, true
}

// Authenticated reports whether the session holds a token
func (s *Session) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Clone returns a copy safe to hand to another goroutine
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Store persists sessions
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type ctxKey struct{}

// WithSession attaches s to ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by WithSession
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
