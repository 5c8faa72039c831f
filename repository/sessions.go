package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"snooptrade/internal/session"
)

// CreateSession inserts a new session row
func (r *Repository) CreateSession(ctx context.Context, s *session.Session) error {
	selection, err := json.Marshal(s.Selection)
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO sessions (id, access_token, selection, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.AccessToken, selection, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns a live session by id, or session.ErrNotFound
func (r *Repository) GetSession(ctx context.Context, id string) (*session.Session, error) {
	var (
		s         session.Session
		selection []byte
	)

	// Let the database handle the expiry check to avoid clock skew between replicas
	err := r.db.QueryRow(ctx, `
		SELECT id, access_token, selection, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()
	`, id).Scan(&s.ID, &s.AccessToken, &selection, &s.CreatedAt, &s.ExpiresAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if err := json.Unmarshal(selection, &s.Selection); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selection: %w", err)
	}
	return &s, nil
}

// SaveSession upserts the mutable fields of a session
func (r *Repository) SaveSession(ctx context.Context, s *session.Session) error {
	selection, err := json.Marshal(s.Selection)
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO sessions (id, access_token, selection, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET access_token = EXCLUDED.access_token, selection = EXCLUDED.selection, expires_at = EXCLUDED.expires_at
	`, s.ID, s.AccessToken, selection, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteSession removes a session; deleting a missing id is not an error
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanExpiredSessions removes all expired sessions
func (r *Repository) CleanExpiredSessions(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// SessionStore adapts the repository to session.Store
type SessionStore struct {
	repo SessionRepository
}

// NewSessionStore creates a session.Store backed by repo
func NewSessionStore(repo SessionRepository) *SessionStore {
	return &SessionStore{repo: repo}
}

func (s *SessionStore) Create(ctx context.Context, sess *session.Session) error {
	return s.repo.CreateSession(ctx, sess)
}

func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	return s.repo.GetSession(ctx, id)
}

func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	return s.repo.SaveSession(ctx, sess)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.CleanExpiredSessions(ctx)
}
