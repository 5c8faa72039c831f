package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.UpstreamRequestsTotal == nil {
		t.Error("UpstreamRequestsTotal is nil")
	}
	if m.UpstreamErrorsTotal == nil {
		t.Error("UpstreamErrorsTotal is nil")
	}
	if m.PipelineDroppedTotal == nil {
		t.Error("PipelineDroppedTotal is nil")
	}
	if m.DashboardTransitionsTotal == nil {
		t.Error("DashboardTransitionsTotal is nil")
	}
	if m.SessionAuthenticationsTotal == nil {
		t.Error("SessionAuthenticationsTotal is nil")
	}
	if m.SessionsExpiredTotal == nil {
		t.Error("SessionsExpiredTotal is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.CircuitBreakerState == nil {
		t.Error("CircuitBreakerState is nil")
	}
}

func TestRecordUpstream(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordUpstreamRequest("get_stocks")
	m.RecordUpstreamRequest("get_stocks")
	m.RecordUpstreamRequest("login")
	m.RecordUpstreamError("get_stocks", "500")
	m.RecordUpstreamError("login", "network")

	if got := testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("get_stocks")); got != 2 {
		t.Errorf("expected 2 get_stocks requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.UpstreamErrorsTotal.WithLabelValues("get_stocks", "500")); got != 1 {
		t.Errorf("expected 1 get_stocks error, got %v", got)
	}
	if got := testutil.ToFloat64(m.UpstreamErrorsTotal.WithLabelValues("login", "network")); got != 1 {
		t.Errorf("expected 1 login network error, got %v", got)
	}
}

func TestRecordDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDropped("trade", "future_date", 3)
	m.RecordDropped("trade", "future_date", 0)
	m.RecordDropped("price", "bad_date", 1)

	if got := testutil.ToFloat64(m.PipelineDroppedTotal.WithLabelValues("trade", "future_date")); got != 3 {
		t.Errorf("expected 3 dropped trades, got %v", got)
	}
	if got := testutil.ToFloat64(m.PipelineDroppedTotal.WithLabelValues("price", "bad_date")); got != 1 {
		t.Errorf("expected 1 dropped price, got %v", got)
	}
}

func TestRecordTransition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordTransition("idle", "loading")
	m.RecordTransition("loading", "ready")
	m.RecordTransition("loading", "ready")

	if got := testutil.ToFloat64(m.DashboardTransitionsTotal.WithLabelValues("loading", "ready")); got != 2 {
		t.Errorf("expected 2 loading->ready transitions, got %v", got)
	}
}

func TestSessionCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SessionAuthenticated()
	m.SessionAuthenticated()
	m.RecordSessionInvalidation("unauthorized")

	if got := testutil.ToFloat64(m.SessionAuthenticationsTotal); got != 2 {
		t.Errorf("expected 2 authentications, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionInvalidationsTotal.WithLabelValues("unauthorized")); got != 1 {
		t.Errorf("expected 1 invalidation, got %v", got)
	}

	t.Run("expired sessions", func(t *testing.T) {
		tests := []struct {
			name string
			n    int64
			want float64
		}{
			{"none", 0, 0},
			{"negative ignored", -3, 0},
			{"some", 4, 4},
			{"accumulates", 2, 6},
		}
		for _, tt := range tests {
			m.RecordSessionsExpired(tt.n)
			if got := testutil.ToFloat64(m.SessionsExpiredTotal); got != tt.want {
				t.Errorf("%s: expected %v expired, got %v", tt.name, tt.want, got)
			}
		}
	})
}

func TestRecordStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	timer := m.NewTimer()
	timer.ObserveStore("redis", "get")
	m.RecordStoreError("redis", "get")

	if got := testutil.CollectAndCount(m.StoreOpDuration); got != 1 {
		t.Errorf("expected 1 store histogram series, got %d", got)
	}
	if got := testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("redis", "get")); got != 1 {
		t.Errorf("expected 1 store error, got %v", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHTTPRequest("GET", "/dashboard", "200", 100*time.Millisecond, 1024)
	m.RecordHTTPRequest("GET", "/dashboard", "200", 200*time.Millisecond, 2048)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/dashboard", "200")); got != 2 {
		t.Errorf("expected 2 requests, got %v", got)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetCircuitBreakerState("snooptrade-market", 2)
	m.RecordCircuitBreakerTrip("snooptrade-market")

	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("snooptrade-market")); got != 2 {
		t.Errorf("expected state=2, got %v", got)
	}
	if got := testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("snooptrade-market")); got != 1 {
		t.Errorf("expected 1 trip, got %v", got)
	}
}

func TestTimer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	timer := m.NewTimer()
	time.Sleep(5 * time.Millisecond)
	timer.ObserveUpstream("get_transactions")

	if timer.Duration() < 5*time.Millisecond {
		t.Errorf("timer duration too short: %v", timer.Duration())
	}
	if got := testutil.CollectAndCount(m.UpstreamDuration); got != 1 {
		t.Errorf("expected 1 upstream histogram series, got %d", got)
	}
}
