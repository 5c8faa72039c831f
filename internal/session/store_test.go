package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"snooptrade/observability"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

// storeContract runs the behavior every Store must share
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		s := New(time.Hour)
		s.SetToken("abc")
		s.Selection.Company = "AAPL"

		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := store.Get(ctx, s.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if token, ok := got.Token(); !ok || token != "abc" {
			t.Errorf("Token() = %q, %v", token, ok)
		}
		if got.Selection.Company != "AAPL" {
			t.Errorf("Selection.Company = %q", got.Selection.Company)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("save overwrites", func(t *testing.T) {
		store := newStore(t)
		s := New(time.Hour)
		_ = store.Create(ctx, s)

		s.SetToken("new")
		s.Selection.Page = 3
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, _ := store.Get(ctx, s.ID)
		if got.AccessToken != "new" || got.Selection.Page != 3 {
			t.Errorf("unexpected session %+v", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		s := New(time.Hour)
		_ = store.Create(ctx, s)

		if err := store.Delete(ctx, s.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := store.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(time.Hour)
	_ = store.Create(ctx, s)

	got, _ := store.Get(ctx, s.ID)
	got.SetToken("mutated")

	again, _ := store.Get(ctx, s.ID)
	if again.Authenticated() {
		t.Error("mutating a returned session must not affect the store")
	}
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	live := New(time.Hour)
	dead := New(time.Minute)
	_ = store.Create(ctx, live)
	_ = store.Create(ctx, dead)

	store.now = func() time.Time { return now.Add(10 * time.Minute) }

	if _, err := store.Get(ctx, dead.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session should not be returned, got %v", err)
	}

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 remaining, got %d", store.Len())
	}
}

func TestRedisStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		client, _ := setupTestRedis(t)
		return NewRedisStore(client, "session")
	})
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, "snooptrade")

	s := New(time.Hour)
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	key := "snooptrade:" + s.ID
	if !mr.Exists(key) {
		t.Fatalf("expected key %s", key)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Hour {
		t.Errorf("unexpected TTL %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after TTL, got %v", err)
	}

	if n, err := store.DeleteExpired(ctx); n != 0 || err != nil {
		t.Errorf("DeleteExpired should be a no-op, got %d, %v", n, err)
	}
}

func TestRedisStore_RejectsExpired(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, "session")

	s := New(-time.Minute)
	if err := store.Create(context.Background(), s); err == nil {
		t.Error("expected error for expired session")
	}
}

func TestSealedStore(t *testing.T) {
	sealer, err := NewSealer("test-secret")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	storeContract(t, func(t *testing.T) Store {
		return NewSealedStore(NewMemoryStore(), sealer)
	})

	t.Run("token sealed at rest", func(t *testing.T) {
		ctx := context.Background()
		inner := NewMemoryStore()
		store := NewSealedStore(inner, sealer)

		s := New(time.Hour)
		s.SetToken("plain-token")
		_ = store.Create(ctx, s)

		raw, _ := inner.Get(ctx, s.ID)
		if raw.AccessToken == "plain-token" || raw.AccessToken == "" {
			t.Errorf("inner store should hold a sealed token, got %q", raw.AccessToken)
		}
		if s.AccessToken != "plain-token" {
			t.Error("caller's session must not be modified")
		}
	})

	t.Run("unreadable token dropped", func(t *testing.T) {
		ctx := context.Background()
		inner := NewMemoryStore()
		other, _ := NewSealer("rotated-secret")

		s := New(time.Hour)
		s.SetToken("abc")
		_ = NewSealedStore(inner, other).Create(ctx, s)

		got, err := NewSealedStore(inner, sealer).Get(ctx, s.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Authenticated() {
			t.Error("token sealed under another secret should be dropped")
		}
	})
}

func TestInstrumentedStore(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	store := NewInstrumentedStore(NewMemoryStore(), "memory", metrics)

	storeContract(t, func(t *testing.T) Store {
		return NewInstrumentedStore(NewMemoryStore(), "memory", metrics)
	})

	// ErrNotFound is a normal outcome, not a store error
	_, _ = store.Get(context.Background(), "missing")
	if got := testutil.CollectAndCount(metrics.StoreErrorsTotal); got != 0 {
		t.Errorf("expected no store error series, got %d", got)
	}

	if got := testutil.CollectAndCount(metrics.StoreOpDuration); got == 0 {
		t.Error("expected store latency to be observed")
	}
}

func TestInstrumentedStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	mem := NewMemoryStore()
	now := time.Now()
	mem.now = func() time.Time { return now }
	store := NewInstrumentedStore(mem, "memory", metrics)

	for _, ttl := range []time.Duration{time.Minute, time.Minute, time.Hour} {
		if err := store.Create(ctx, New(ttl)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	mem.now = func() time.Time { return now.Add(10 * time.Minute) }

	n, err := store.DeleteExpired(ctx)
	if err != nil || n != 2 {
		t.Fatalf("DeleteExpired = %d, %v", n, err)
	}
	if got := testutil.ToFloat64(metrics.SessionsExpiredTotal); got != 2 {
		t.Errorf("expected 2 expired sessions recorded, got %v", got)
	}

	// nothing left to purge
	_, _ = store.DeleteExpired(ctx)
	if got := testutil.ToFloat64(metrics.SessionsExpiredTotal); got != 2 {
		t.Errorf("second sweep should add nothing, got %v", got)
	}
}
