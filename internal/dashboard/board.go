package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"snooptrade/models"
	"snooptrade/observability"
	"snooptrade/services"
)

// State is the dashboard lifecycle state
type State string

const (
	StateIdle            State = "idle"
	StateLoading         State = "loading"
	StateReady           State = "ready"
	StateError           State = "error"
	StateUnauthenticated State = "unauthenticated"
	StateForecasting     State = "forecasting"
)

// ErrUnauthorized is returned when the upstream rejected the bearer token.
// The caller must end the session.
var ErrUnauthorized = errors.New("session token rejected by upstream")

// Source is the slice of the upstream client the dashboard needs
type Source interface {
	GetStocks(ctx context.Context, token, symbol string, window models.TimeWindow) ([]models.RawPricePoint, error)
	GetTransactions(ctx context.Context, token, symbol string, window models.TimeWindow) ([]models.RawTrade, error)
	Forecast(ctx context.Context, token string, points []models.ForecastInput) ([]models.ForecastPoint, error)
}

// Display messages for failed fetches
const (
	msgPricesFailed = "Failed to load stock data. Please try again."
	msgTradesFailed = "Failed to load insider trades. Please try again."
)

// Snapshot is an immutable view of a Board
type Snapshot struct {
	State      State
	Company    string
	Window     models.TimeWindow
	Prices     PriceSeries
	Trades     TradeSet
	Forecast   []models.ForecastPoint
	PriceError string
	TradeError string
	Generation uint64
}

// Loaded reports whether fetched data is available to render
func (s Snapshot) Loaded() bool {
	return s.State == StateReady || s.State == StateError || s.State == StateForecasting
}

// Board is the dashboard state machine for one session.
// Each load is tagged with a generation and the selection it was issued
// for; results that no longer match are discarded.
type Board struct {
	mu       sync.Mutex
	source   Source
	metrics  *observability.Metrics
	now      func() time.Time
	snap     Snapshot
	lastUsed time.Time
}

// NewBoard creates an idle board
func NewBoard(source Source, metrics *observability.Metrics) *Board {
	return &Board{
		source:   source,
		metrics:  metrics,
		now:      time.Now,
		snap:     Snapshot{State: StateIdle},
		lastUsed: time.Now(),
	}
}

// Snapshot returns the current state
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

func (b *Board) transition(to State) {
	from := b.snap.State
	b.snap.State = to
	b.lastUsed = b.now()
	if from != to {
		b.metrics.RecordTransition(string(from), string(to))
	}
}

// Clear returns the board to Idle and invalidates any load in flight
func (b *Board) Clear() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.snap.Generation + 1
	b.transition(StateIdle)
	b.snap = Snapshot{State: StateIdle, Generation: gen}
	return b.snap
}

// Ensure loads company and window unless the board already holds them.
// A selection that failed to load is fetched again.
func (b *Board) Ensure(ctx context.Context, token, company string, window models.TimeWindow) (Snapshot, error) {
	b.mu.Lock()
	current := b.snap
	b.lastUsed = b.now()
	b.mu.Unlock()

	if current.Loaded() && current.State != StateError && current.Company == company && current.Window == window {
		return current, nil
	}
	return b.Select(ctx, token, company, window)
}

type fetchResult struct {
	prices []models.RawPricePoint
	trades []models.RawTrade
	pErr   error
	tErr   error
}

// Select starts a load for company and window and waits for it to settle.
// The two fetches run concurrently and fail independently.
func (b *Board) Select(ctx context.Context, token, company string, window models.TimeWindow) (Snapshot, error) {
	if company == "" {
		return b.Clear(), nil
	}

	b.mu.Lock()
	gen := b.snap.Generation + 1
	b.transition(StateLoading)
	b.snap = Snapshot{State: StateLoading, Company: company, Window: window, Generation: gen}
	b.mu.Unlock()

	log := observability.WithCompany(company)
	log.Debug("loading dashboard", "window", window, "generation", gen)

	var (
		wg  sync.WaitGroup
		res fetchResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.prices, res.pErr = b.source.GetStocks(ctx, token, company, window)
	}()
	go func() {
		defer wg.Done()
		res.trades, res.tErr = b.source.GetTransactions(ctx, token, company, window)
	}()
	wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.snap.Generation != gen || b.snap.Company != company || b.snap.Window != window {
		log.Info("discarding stale dashboard response",
			"window", window,
			"generation", gen,
			"current_company", b.snap.Company,
			"current_generation", b.snap.Generation)
		return b.snap, nil
	}

	if services.IsUnauthorized(res.pErr) || services.IsUnauthorized(res.tErr) {
		b.transition(StateUnauthenticated)
		return b.snap, ErrUnauthorized
	}

	next := b.snap
	if res.pErr != nil {
		log.Warn("price fetch failed", "window", window, "error", res.pErr)
		next.PriceError = services.DisplayMessage(res.pErr, msgPricesFailed)
	} else {
		next.Prices = NormalizePrices(res.prices)
		b.metrics.RecordDropped("price", ReasonBadDate, next.Prices.Dropped)
	}
	if res.tErr != nil {
		log.Warn("trade fetch failed", "window", window, "error", res.tErr)
		next.TradeError = services.DisplayMessage(res.tErr, msgTradesFailed)
	} else {
		next.Trades = NormalizeTrades(res.trades, b.now())
		for reason, n := range next.Trades.Dropped {
			b.metrics.RecordDropped("trade", reason, n)
		}
	}
	if dropped := next.Prices.Dropped + droppedTotal(next.Trades); dropped > 0 {
		log.Debug("dropped malformed records", "count", dropped)
	}

	b.snap = next
	if res.pErr != nil || res.tErr != nil {
		b.transition(StateError)
	} else {
		b.transition(StateReady)
	}
	return b.snap, nil
}

func droppedTotal(t TradeSet) int {
	n := 0
	for _, v := range t.Dropped {
		n += v
	}
	return n
}

// Predict requests a forecast for the loaded price series. It runs
// whenever prices loaded, even if the trade fetch failed.
// A failed forecast is logged and the board returns to its prior state.
func (b *Board) Predict(ctx context.Context, token string) (Snapshot, error) {
	b.mu.Lock()
	if b.snap.State != StateReady && b.snap.State != StateError {
		defer b.mu.Unlock()
		return b.snap, nil
	}
	if b.snap.PriceError != "" || b.snap.Prices.Empty() {
		defer b.mu.Unlock()
		observability.WithCompany(b.snap.Company).Debug("no prices to forecast")
		return b.snap, nil
	}
	gen := b.snap.Generation
	company := b.snap.Company
	prior := b.snap.State
	inputs := ForecastInputs(b.snap.Prices.Points)
	b.transition(StateForecasting)
	b.mu.Unlock()

	forecast, err := b.source.Forecast(ctx, token, inputs)

	b.mu.Lock()
	defer b.mu.Unlock()

	log := observability.WithCompany(company)
	if b.snap.Generation != gen || b.snap.Company != company {
		log.Info("discarding stale forecast", "generation", gen)
		return b.snap, nil
	}

	if services.IsUnauthorized(err) {
		b.transition(StateUnauthenticated)
		return b.snap, ErrUnauthorized
	}
	if err != nil {
		log.Warn("forecast failed", "error", err)
		b.snap.Forecast = nil
	} else {
		b.snap.Forecast = forecast
	}
	b.transition(prior)
	return b.snap, nil
}

// idleSince reports when the board was last used
func (b *Board) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}
