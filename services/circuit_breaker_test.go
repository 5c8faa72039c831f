package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestNewCircuitBreakerRegistry(t *testing.T) {
	config := CircuitBreakerConfig{
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
	}

	registry := NewCircuitBreakerRegistry(config)

	if registry == nil {
		t.Fatal("expected registry to be created")
	}
	if registry.breakers == nil {
		t.Error("expected breakers map to be initialized")
	}
	if registry.config.MaxRequests != 3 {
		t.Errorf("expected MaxRequests=3, got %d", registry.config.MaxRequests)
	}
}

func TestCircuitBreakerRegistry_GetBreaker(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)

	breaker1 := registry.GetBreaker(BreakerMarket)
	if breaker1 == nil {
		t.Fatal("expected breaker to be created")
	}

	breaker2 := registry.GetBreaker(BreakerMarket)
	if breaker1 != breaker2 {
		t.Error("expected same breaker instance")
	}

	breaker3 := registry.GetBreaker(BreakerAuth)
	if breaker1 == breaker3 {
		t.Error("expected different breaker for different name")
	}
}

func TestCircuitBreakerRegistry_Execute(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		result, err := registry.Execute(ctx, "test-service", func() (any, error) {
			return "success", nil
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "success" {
			t.Errorf("expected 'success', got %v", result)
		}
	})

	t.Run("error", func(t *testing.T) {
		result, err := registry.Execute(ctx, "test-service", func() (any, error) {
			return nil, errors.New("test error")
		})
		if err == nil {
			t.Error("expected error")
		}
		if result != nil {
			t.Errorf("expected nil result, got %v", result)
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := registry.Execute(cctx, "test-service", func() (any, error) {
			return "should not reach", nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCircuitBreakerRegistry_Status(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	ctx := context.Background()

	_, _ = registry.Execute(ctx, "service-a", func() (any, error) {
		return "ok", nil
	})
	_, _ = registry.Execute(ctx, "service-b", func() (any, error) {
		return nil, errors.New("fail")
	})

	status := registry.Status()

	if len(status) != 2 {
		t.Fatalf("expected 2 breakers in status, got %d", len(status))
	}
	if status["service-a"].TotalSuccesses != 1 {
		t.Errorf("expected 1 success for service-a, got %d", status["service-a"].TotalSuccesses)
	}
	if status["service-b"].TotalFailures != 1 {
		t.Errorf("expected 1 failure for service-b, got %d", status["service-b"].TotalFailures)
	}
}

func TestCircuitBreakerRegistry_TripsAfterServerErrors(t *testing.T) {
	config := DefaultCircuitBreakerConfig
	config.MaxRequests = 1
	config.Timeout = time.Second
	registry := NewCircuitBreakerRegistry(config)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = registry.Execute(ctx, "failing-service", func() (any, error) {
			return nil, &APIError{Operation: OpGetStocks, Status: http.StatusBadGateway}
		})
	}

	if state := registry.Status()["failing-service"].State; state != "open" {
		t.Fatalf("expected breaker to be open, got %s", state)
	}

	_, err := registry.Execute(ctx, "failing-service", func() (any, error) {
		return "should not execute", nil
	})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestCircuitBreakerRegistry_ClientErrorsDoNotTrip(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := registry.Execute(ctx, BreakerAuth, func() (any, error) {
			return nil, &APIError{Operation: OpLogin, Status: http.StatusUnauthorized}
		})
		if !IsUnauthorized(err) {
			t.Fatalf("expected 401 to pass through, got %v", err)
		}
	}

	status := registry.Status()[BreakerAuth]
	if status.State != "closed" {
		t.Errorf("expected breaker to stay closed, got %s", status.State)
	}
	if status.TotalFailures != 0 {
		t.Errorf("401s should not count as failures, got %d", status.TotalFailures)
	}
}

func TestWithBreaker_TypedResults(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	ctx := context.Background()

	result, err := withBreaker(ctx, registry, "typed", func() ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("expected 3 items, got %d", len(result))
	}

	s, err := withBreaker(ctx, registry, "typed", func() (string, error) {
		return "", errors.New("boom")
	})
	if err == nil || s != "" {
		t.Errorf("expected zero value and error, got %q, %v", s, err)
	}
}

func TestIsBreakerSuccess(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"canceled", context.Canceled, true},
		{"unauthorized", &APIError{Status: 401}, true},
		{"conflict", &APIError{Status: 409}, true},
		{"server error", &APIError{Status: 500}, false},
		{"network", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBreakerSuccess(tt.err); got != tt.want {
				t.Errorf("isBreakerSuccess(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCircuitBreakerRegistry_Concurrent(t *testing.T) {
	registry := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := registry.Execute(ctx, "concurrent-test", func() (any, error) {
				return id, nil
			}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	if got := registry.Status()["concurrent-test"].TotalSuccesses; got != 10 {
		t.Errorf("expected 10 successes, got %d", got)
	}
}
