// Package mocks provides an in-process stub of the SnoopTrade REST API for
// handler and end-to-end tests.
package mocks

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Endpoint names used for error injection and request counting.
const (
	EndpointToken        = "token"
	EndpointSignUp       = "signup"
	EndpointMe           = "me"
	EndpointUpdate       = "update"
	EndpointStocks       = "stocks"
	EndpointTransactions = "transactions"
	EndpointFuture       = "future"
)

// ValidToken is the bearer token issued on every successful login.
const ValidToken = "abc"

// MockServer provides configurable mock responses for the upstream API.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations
	users    map[string]User
	prices   map[string][]PriceRow
	trades   map[string][]TradeRow
	forecast []ForecastRow

	// Error injection
	failures map[string]Failure

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Endpoint string
	Method   string
	Path     string
	Query    string
	Auth     string
	Body     string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		users:      make(map[string]User),
		prices:     make(map[string][]PriceRow),
		trades:     make(map[string][]TradeRow),
		failures:   make(map[string]Failure),
		requestLog: make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

func endpointOf(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/auth/token":
		return EndpointToken
	case path == "/auth/signup":
		return EndpointSignUp
	case path == "/auth/me":
		return EndpointMe
	case path == "/auth/me/update":
		return EndpointUpdate
	case strings.HasPrefix(path, "/stocks/"):
		return EndpointStocks
	case strings.HasPrefix(path, "/transactions/"):
		return EndpointTransactions
	case path == "/future":
		return EndpointFuture
	}
	return ""
}

// ServeHTTP implements http.Handler to route requests to the mock handlers.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	endpoint := endpointOf(r)

	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Endpoint: endpoint,
		Method:   r.Method,
		Path:     r.URL.Path,
		Query:    r.URL.RawQuery,
		Auth:     r.Header.Get("Authorization"),
		Body:     string(body),
	})
	failure, failing := m.failures[endpoint]
	m.mu.Unlock()

	if failing {
		writeJSON(w, failure.Status, map[string]string{"detail": failure.Detail})
		return
	}

	switch endpoint {
	case EndpointToken:
		m.handleToken(w, string(body))
	case EndpointSignUp:
		m.handleSignUp(w, body)
	case EndpointMe:
		m.withAuth(w, r, m.handleMe)
	case EndpointUpdate:
		m.withAuth(w, r, func(w http.ResponseWriter, r *http.Request) { m.handleUpdate(w, body) })
	case EndpointStocks:
		m.withAuth(w, r, m.handleStocks)
	case EndpointTransactions:
		m.withAuth(w, r, m.handleTransactions)
	case EndpointFuture:
		m.withAuth(w, r, m.handleFuture)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (m *MockServer) withAuth(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if r.Header.Get("Authorization") != "Bearer "+ValidToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}
	next(w, r)
}

func (m *MockServer) handleToken(w http.ResponseWriter, body string) {
	form, _ := url.ParseQuery(body)
	email := form.Get("username")

	m.mu.RLock()
	user, ok := m.users[email]
	m.mu.RUnlock()

	switch {
	case form.Get("login_type") == "google" && form.Get("token") != "":
		writeJSON(w, http.StatusOK, map[string]string{"access_token": ValidToken, "token_type": "bearer"})
	case ok && user.Password == form.Get("password"):
		writeJSON(w, http.StatusOK, map[string]string{"access_token": ValidToken, "token_type": "bearer"})
	default:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
	}
}

func (m *MockServer) handleSignUp(w http.ResponseWriter, body []byte) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "invalid body"}}})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[req.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"detail": "Email already exists"})
		return
	}
	m.users[req.Email] = User{Name: req.Name, Email: req.Email, Password: req.Password}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User created successfully"})
}

func (m *MockServer) handleMe(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user := m.users[DefaultUser.Email]
	writeJSON(w, http.StatusOK, user)
}

func (m *MockServer) handleUpdate(w http.ResponseWriter, body []byte) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.users[DefaultUser.Email]
	user.Name = req.Name
	if req.Password != "" {
		user.Password = req.Password
	}
	m.users[DefaultUser.Email] = user
	writeJSON(w, http.StatusOK, map[string]string{"message": "User updated successfully"})
}

func symbolOf(path string) string {
	return strings.ToUpper(path[strings.LastIndex(path, "/")+1:])
}

func (m *MockServer) handleStocks(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	rows, ok := m.prices[symbolOf(r.URL.Path)]
	m.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Stock data not found"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (m *MockServer) handleTransactions(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	rows := m.trades[symbolOf(r.URL.Path)]
	m.mu.RUnlock()
	if rows == nil {
		rows = []TradeRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (m *MockServer) handleFuture(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, http.StatusOK, m.forecast)
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// CountRequests returns how many requests hit endpoint.
func (m *MockServer) CountRequests(endpoint string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, l := range m.requestLog {
		if l.Endpoint == endpoint {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetFailure makes endpoint answer with status and detail.
func (m *MockServer) SetFailure(endpoint string, status int, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[endpoint] = Failure{Status: status, Detail: detail}
}

// ClearFailures removes all injected errors.
func (m *MockServer) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string]Failure)
}

// SetPrices configures the price series for symbol.
func (m *MockServer) SetPrices(symbol string, rows []PriceRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[strings.ToUpper(symbol)] = rows
}

// SetTrades configures the insider trades for symbol.
func (m *MockServer) SetTrades(symbol string, rows []TradeRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[strings.ToUpper(symbol)] = rows
}

// SetForecast configures the forecast response.
func (m *MockServer) SetForecast(rows []ForecastRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecast = rows
}

// AddUser registers an account.
func (m *MockServer) AddUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Email] = u
}

// DefaultUser can always log in.
var DefaultUser = User{Name: "Test User", Email: "user@test.com", Password: "secret1"}

// setDefaults seeds one user and AAPL data relative to today.
func (m *MockServer) setDefaults() {
	m.users[DefaultUser.Email] = DefaultUser

	today := time.Now().UTC().Truncate(24 * time.Hour)
	m.prices["AAPL"] = GeneratePrices("AAPL", today, 30)
	m.trades["AAPL"] = DefaultTrades(today)
	m.forecast = GenerateForecast(today, 10)
}

// GeneratePrices returns count daily rows ending the day before end.
func GeneratePrices(symbol string, end time.Time, count int) []PriceRow {
	rows := make([]PriceRow, 0, count)
	price := 150.0
	for i := count; i > 0; i-- {
		day := end.AddDate(0, 0, -i)
		open := price
		price += float64(i%5) - 2
		rows = append(rows, PriceRow{
			Ticker: symbol,
			Date:   day.Format("2006-01-02"),
			Open:   F(open),
			High:   F(price + 1),
			Low:    F(open - 1),
			Close:  F(price),
			Volume: F(1000000),
		})
	}
	return rows
}

// DefaultTrades covers a known code, an unknown code, string and numeric
// shares, and two rows that must be filtered out.
func DefaultTrades(today time.Time) []TradeRow {
	day := func(offset int) string { return today.AddDate(0, 0, offset).Format("2006-01-02") }
	return []TradeRow{
		{TransactionDate: day(-3), TransactionCode: "M", Shares: "1,000", PricePerShare: "$10.50", ReportingOwnerName: "Jane Doe"},
		{TransactionDate: day(-5), TransactionCode: "S", Shares: 250, PricePerShare: 187.2, ReportingOwnerName: "John Roe"},
		{TransactionDate: day(-7), TransactionCode: "Z", Shares: "40", PricePerShare: nil},
		{TransactionDate: day(5), TransactionCode: "P", Shares: "999999", PricePerShare: "1"},
		{TransactionDate: "not a date", TransactionCode: "P", Shares: "888888", PricePerShare: "1"},
	}
}

// GenerateForecast returns count predicted days starting today.
func GenerateForecast(start time.Time, count int) []ForecastRow {
	rows := make([]ForecastRow, 0, count)
	for i := 0; i < count; i++ {
		v := 160 + float64(i)
		rows = append(rows, ForecastRow{
			Date:         start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:         v,
			YhatLower:    F(v - 5),
			YhatUpper:    F(v + 5),
			TrendLower:   F(v - 2),
			TrendUpper:   F(v + 2),
			Momentum:     F(0.5),
			Acceleration: F(0.1),
		})
	}
	return rows
}
