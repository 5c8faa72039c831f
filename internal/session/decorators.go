package session

import (
	"context"
	"errors"

	"snooptrade/observability"
)

// SealedStore encrypts the access token on the way into the wrapped store
// and decrypts it on the way out
type SealedStore struct {
	next   Store
	sealer *Sealer
}

// NewSealedStore wraps next
func NewSealedStore(next Store, sealer *Sealer) *SealedStore {
	return &SealedStore{next: next, sealer: sealer}
}

func (s *SealedStore) seal(sess *Session) (*Session, error) {
	c := sess.Clone()
	if c.AccessToken == "" {
		return c, nil
	}
	sealed, err := s.sealer.Seal(c.AccessToken)
	if err != nil {
		return nil, err
	}
	c.AccessToken = sealed
	return c, nil
}

func (s *SealedStore) Create(ctx context.Context, sess *Session) error {
	c, err := s.seal(sess)
	if err != nil {
		return err
	}
	return s.next.Create(ctx, c)
}

func (s *SealedStore) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.AccessToken == "" {
		return sess, nil
	}
	token, err := s.sealer.Open(sess.AccessToken)
	if err != nil {
		// A token sealed under a rotated secret is unusable; the session
		// continues anonymously and the user logs in again.
		observability.WithSession(id).Warn("dropping unreadable session token", "error", err)
		sess.ClearToken()
		return sess, nil
	}
	sess.AccessToken = token
	return sess, nil
}

func (s *SealedStore) Save(ctx context.Context, sess *Session) error {
	c, err := s.seal(sess)
	if err != nil {
		return err
	}
	return s.next.Save(ctx, c)
}

func (s *SealedStore) Delete(ctx context.Context, id string) error {
	return s.next.Delete(ctx, id)
}

func (s *SealedStore) DeleteExpired(ctx context.Context) (int64, error) {
	return s.next.DeleteExpired(ctx)
}

// InstrumentedStore records latency and errors of the wrapped store
type InstrumentedStore struct {
	next    Store
	backend string
	metrics *observability.Metrics
}

// NewInstrumentedStore wraps next, labelling metrics with backend
func NewInstrumentedStore(next Store, backend string, metrics *observability.Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend, metrics: metrics}
}

func (s *InstrumentedStore) observe(op string, fn func() error) error {
	timer := s.metrics.NewTimer()
	err := fn()
	timer.ObserveStore(s.backend, op)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.metrics.RecordStoreError(s.backend, op)
	}
	return err
}

func (s *InstrumentedStore) Create(ctx context.Context, sess *Session) error {
	return s.observe("create", func() error { return s.next.Create(ctx, sess) })
}

func (s *InstrumentedStore) Get(ctx context.Context, id string) (*Session, error) {
	var out *Session
	err := s.observe("get", func() error {
		var err error
		out, err = s.next.Get(ctx, id)
		return err
	})
	return out, err
}

func (s *InstrumentedStore) Save(ctx context.Context, sess *Session) error {
	return s.observe("save", func() error { return s.next.Save(ctx, sess) })
}

func (s *InstrumentedStore) Delete(ctx context.Context, id string) error {
	return s.observe("delete", func() error { return s.next.Delete(ctx, id) })
}

func (s *InstrumentedStore) DeleteExpired(ctx context.Context) (int64, error) {
	var n int64
	err := s.observe("delete_expired", func() error {
		var err error
		n, err = s.next.DeleteExpired(ctx)
		return err
	})
	if err == nil {
		s.metrics.RecordSessionsExpired(n)
	}
	return n, err
}
