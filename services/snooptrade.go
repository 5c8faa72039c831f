package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"snooptrade/config"
	"snooptrade/models"
	"snooptrade/observability"
)

// maxResponseBytes caps how much of an upstream body is read
const maxResponseBytes = 16 << 20

// Upstream operation names used in logs and metrics
const (
	OpLogin           = "login"
	OpSignUp          = "signup"
	OpMe              = "me"
	OpUpdateProfile   = "update_profile"
	OpGetStocks       = "get_stocks"
	OpGetTransactions = "get_transactions"
	OpForecast        = "forecast"
)

var operationBreakers = map[string]string{
	OpLogin:           BreakerAuth,
	OpSignUp:          BreakerAuth,
	OpMe:              BreakerAuth,
	OpUpdateProfile:   BreakerAuth,
	OpGetStocks:       BreakerMarket,
	OpGetTransactions: BreakerMarket,
	OpForecast:        BreakerForecast,
}

// SnoopTradeService handles communication with the SnoopTrade REST API
type SnoopTradeService struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	retry      RetryConfig
	breakers   *CircuitBreakerRegistry
}

// NewSnoopTradeService creates a client for the configured upstream
func NewSnoopTradeService(cfg config.UpstreamConfig) *SnoopTradeService {
	retry := DefaultRetryConfig
	retry.MaxRetries = cfg.RetryMax

	return &SnoopTradeService{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{},
		timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		retry:      retry,
		breakers:   NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig),
	}
}

// Breakers exposes the circuit breaker registry for health reporting
func (s *SnoopTradeService) Breakers() *CircuitBreakerRegistry {
	return s.breakers
}

// Login exchanges email and password for a bearer token
func (s *SnoopTradeService) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	form.Set("login_type", "normal")
	return s.issueToken(ctx, form)
}

// LoginFederated exchanges a Google identity for a bearer token.
// The password field is sent empty and the credential travels as token.
func (s *SnoopTradeService) LoginFederated(ctx context.Context, email, credential string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", "")
	form.Set("login_type", "google")
	form.Set("token", credential)
	return s.issueToken(ctx, form)
}

func (s *SnoopTradeService) issueToken(ctx context.Context, form url.Values) (string, error) {
	var resp models.TokenResponse
	err := s.do(ctx, request{
		op:          OpLogin,
		method:      http.MethodPost,
		path:        "/auth/token",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &APIError{Operation: OpLogin, Status: http.StatusBadGateway, Message: "Login response did not include an access token"}
	}
	return resp.AccessToken, nil
}

// SignUp registers a new account
func (s *SnoopTradeService) SignUp(ctx context.Context, req models.SignUpRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode signup: %w", err)
	}
	err = s.do(ctx, request{
		op:          OpSignUp,
		method:      http.MethodPost,
		path:        "/auth/signup",
		body:        body,
		contentType: "application/json",
	}, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		apiErr.Message = "Email already exists"
	}
	return err
}

// Me returns the profile of the token holder
func (s *SnoopTradeService) Me(ctx context.Context, token string) (*models.Profile, error) {
	var profile models.Profile
	err := s.do(ctx, request{
		op:     OpMe,
		method: http.MethodGet,
		path:   "/auth/me",
		token:  token,
	}, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile changes the name and, when set, the password
func (s *SnoopTradeService) UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode profile update: %w", err)
	}
	return s.do(ctx, request{
		op:          OpUpdateProfile,
		method:      http.MethodPut,
		path:        "/auth/me/update",
		token:       token,
		body:        body,
		contentType: "application/json",
	}, nil)
}

// GetStocks returns the raw price series for symbol over window
func (s *SnoopTradeService) GetStocks(ctx context.Context, token, symbol string, window models.TimeWindow) ([]models.RawPricePoint, error) {
	var points []models.RawPricePoint
	err := s.do(ctx, request{
		op:     OpGetStocks,
		method: http.MethodGet,
		path:   "/stocks/" + url.PathEscape(symbol) + "?period=" + url.QueryEscape(string(window)),
		token:  token,
	}, &points)
	if err != nil {
		return nil, err
	}
	return points, nil
}

// GetTransactions returns the raw insider trades for symbol over window
func (s *SnoopTradeService) GetTransactions(ctx context.Context, token, symbol string, window models.TimeWindow) ([]models.RawTrade, error) {
	var trades []models.RawTrade
	err := s.do(ctx, request{
		op:     OpGetTransactions,
		method: http.MethodGet,
		path:   "/transactions/" + url.PathEscape(symbol) + "?time_period=" + url.QueryEscape(string(window)),
		token:  token,
	}, &trades)
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// Forecast asks the upstream model to project the given price history
func (s *SnoopTradeService) Forecast(ctx context.Context, token string, points []models.ForecastInput) ([]models.ForecastPoint, error) {
	if points == nil {
		points = []models.ForecastInput{}
	}
	body, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast input: %w", err)
	}
	var forecast []models.ForecastPoint
	err = s.do(ctx, request{
		op:          OpForecast,
		method:      http.MethodPost,
		path:        "/future",
		token:       token,
		body:        body,
		contentType: "application/json",
	}, &forecast)
	if err != nil {
		return nil, err
	}
	return forecast, nil
}

type request struct {
	op          string
	method      string
	path        string
	token       string
	body        []byte
	contentType string
}

// do performs one logical call: breaker-guarded, and retried for GETs
func (s *SnoopTradeService) do(ctx context.Context, req request, out any) error {
	metrics := observability.GetMetrics()
	metrics.RecordUpstreamRequest(req.op)
	timer := metrics.NewTimer()
	defer timer.ObserveUpstream(req.op)

	breaker := operationBreakers[req.op]
	attempt := func() error {
		_, err := withBreaker(ctx, s.breakers, breaker, func() (struct{}, error) {
			return struct{}{}, s.roundTrip(ctx, req, out)
		})
		return err
	}

	var err error
	if req.method == http.MethodGet {
		err = WithRetryIf(ctx, s.retry, isRetryable, attempt)
	} else {
		err = attempt()
	}

	if err != nil {
		status := "network"
		if code := StatusOf(err); code != 0 {
			status = strconv.Itoa(code)
		}
		metrics.RecordUpstreamError(req.op, status)
		observability.WithContext(ctx).Warn("upstream call failed",
			"operation", req.op,
			"status", status,
			"error", err)
	}
	return err
}

func (s *SnoopTradeService) roundTrip(ctx context.Context, req request, out any) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, s.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", req.op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", req.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Operation: req.op,
			Status:    resp.StatusCode,
			Message:   serverMessage(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.op, err)
	}
	return nil
}

// isRetryable allows another attempt for network faults and 5xx responses
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrServiceUnavailable) {
		return false
	}
	if status := StatusOf(err); status != 0 {
		return status >= 500
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}
	return true
}
