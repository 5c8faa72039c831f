package repository

import (
	"context"

	"snooptrade/internal/session"
)

// SessionRepository defines the session persistence operations
type SessionRepository interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error
	Migrate(ctx context.Context) error

	// Sessions
	CreateSession(ctx context.Context, s *session.Session) error
	GetSession(ctx context.Context, id string) (*session.Session, error)
	SaveSession(ctx context.Context, s *session.Session) error
	DeleteSession(ctx context.Context, id string) error
	CleanExpiredSessions(ctx context.Context) (int64, error)
}

// Compile-time interface verification
var (
	_ SessionRepository = (*Repository)(nil)
	_ session.Store     = (*SessionStore)(nil)
)
