// Package app is the facade the HTTP handlers and the CLI drive: it owns
// form validation, upstream error translation and the per-session
// dashboards.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"snooptrade/config"
	"snooptrade/internal/dashboard"
	"snooptrade/models"
	"snooptrade/observability"
	"snooptrade/services"
)

// ErrUnauthorized means the session must end and the user log in again
var ErrUnauthorized = dashboard.ErrUnauthorized

// ErrUnknownCompany is returned for a symbol outside the allow-list
var ErrUnknownCompany = errors.New("company is not available")

// Form messages
const (
	MsgLoginFailed        = "Login failed. Please try again."
	MsgSomethingWrong     = "Something went wrong. Please try again."
	MsgMissingCredentials = "Please enter your email and password."
	MsgGoogleFailed       = "Google login failed."
	MsgGoogleWrong        = "Something went wrong with Google login."
	MsgGoogleBadToken     = "Google token is missing or invalid."
	MsgGoogleNoEmail      = "Google token does not contain email information."
	MsgSignUpFailed       = "Sign up failed. Please try again."
	MsgProfileFailed      = "Failed to load your profile. Please try again."
	MsgUpdateFailed       = "Failed to update your profile. Please try again."
	MsgProfileUpdated     = "Account details updated!"
)

// FormError is a failed submission carrying the message for the form
type FormError struct {
	Message string
	Err     error
}

func (e *FormError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *FormError) Unwrap() error { return e.Err }

// formError picks the server message, the HTTP fallback or the network
// fallback, in that order
func formError(err error, httpFallback, networkFallback string) error {
	if services.StatusOf(err) != 0 {
		return &FormError{Message: services.DisplayMessage(err, httpFallback), Err: err}
	}
	if errors.Is(err, services.ErrServiceUnavailable) {
		return &FormError{Message: services.DisplayMessage(err, networkFallback), Err: err}
	}
	return &FormError{Message: networkFallback, Err: err}
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg       *config.Config
	upstream  services.SnoopTradeServiceInterface
	boards    *dashboard.Registry
	companies models.Companies
}

// New creates a new App
func New(cfg *config.Config, upstream services.SnoopTradeServiceInterface, metrics *observability.Metrics) *App {
	return &App{
		cfg:       cfg,
		upstream:  upstream,
		boards:    dashboard.NewRegistry(upstream, metrics),
		companies: models.NewCompanies(cfg.Dashboard.Companies),
	}
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.cfg
}

// Boards returns the per-session dashboards
func (a *App) Boards() *dashboard.Registry {
	return a.boards
}

// Companies returns the dashboard allow-list
func (a *App) Companies() models.Companies {
	return a.companies
}

// BreakerStatus reports upstream circuit breakers when the client exposes them
func (a *App) BreakerStatus() map[string]services.CircuitBreakerStatus {
	if r, ok := a.upstream.(interface {
		Breakers() *services.CircuitBreakerRegistry
	}); ok {
		return r.Breakers().Status()
	}
	return map[string]services.CircuitBreakerStatus{}
}

// Login exchanges credentials for a bearer token
func (a *App) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", &FormError{Message: MsgMissingCredentials}
	}

	token, err := a.upstream.Login(ctx, email, password)
	if err != nil {
		return "", formError(err, MsgLoginFailed, MsgSomethingWrong)
	}
	return token, nil
}

// LoginGoogle exchanges a Google ID token for a bearer token. The email is
// read from the credential's claims; the upstream verifies the signature.
func (a *App) LoginGoogle(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", &FormError{Message: MsgGoogleBadToken}
	}
	email, err := credentialEmail(credential)
	if err != nil {
		return "", err
	}

	token, err := a.upstream.LoginFederated(ctx, email, credential)
	if err != nil {
		return "", formError(err, MsgGoogleFailed, MsgGoogleWrong)
	}
	return token, nil
}

func credentialEmail(credential string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return "", &FormError{Message: MsgGoogleBadToken, Err: err}
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", &FormError{Message: MsgGoogleNoEmail}
	}
	return email, nil
}

// SignUp validates the form and registers the account
func (a *App) SignUp(ctx context.Context, name, email, password, confirm string) error {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if err := ValidateSignUp(name, email, password, confirm); err != nil {
		return err
	}

	err := a.upstream.SignUp(ctx, models.SignUpRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return formError(err, MsgSignUpFailed, MsgSomethingWrong)
	}
	observability.Info("account registered")
	return nil
}

// Profile returns the signed-in user's profile
func (a *App) Profile(ctx context.Context, token string) (*models.Profile, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	profile, err := a.upstream.Me(ctx, token)
	if err != nil {
		if services.IsUnauthorized(err) {
			return nil, ErrUnauthorized
		}
		return nil, formError(err, MsgProfileFailed, MsgProfileFailed)
	}
	return profile, nil
}

// UpdateProfile validates the account form and saves it.
// An empty password leaves the current one unchanged.
func (a *App) UpdateProfile(ctx context.Context, token, name, password, confirm string) error {
	if token == "" {
		return ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if err := ValidateProfileUpdate(name, password, confirm); err != nil {
		return err
	}

	err := a.upstream.UpdateProfile(ctx, token, models.ProfileUpdate{Name: name, Password: password})
	if err != nil {
		if services.IsUnauthorized(err) {
			return ErrUnauthorized
		}
		return formError(err, MsgUpdateFailed, MsgSomethingWrong)
	}
	return nil
}

// ResolveSelection validates a requested company and window.
// An empty company is allowed and means nothing is selected.
func (a *App) ResolveSelection(company, window string) (string, models.TimeWindow, error) {
	w, err := models.ParseTimeWindow(window)
	if err != nil {
		w = models.TimeWindow(a.cfg.Dashboard.DefaultWindow)
	}
	company = strings.ToUpper(strings.TrimSpace(company))
	if company != "" && !a.companies.Contains(company) {
		return "", w, fmt.Errorf("%w: %s", ErrUnknownCompany, company)
	}
	return company, w, nil
}

// Dashboard brings the session's board to the requested selection,
// fetching only when the company or window changed
func (a *App) Dashboard(ctx context.Context, sessionID, token, company string, window models.TimeWindow) (dashboard.Snapshot, error) {
	if token == "" {
		return dashboard.Snapshot{State: dashboard.StateUnauthenticated}, ErrUnauthorized
	}
	board := a.boards.Board(sessionID)
	if company == "" {
		if board.Snapshot().Company != "" {
			return board.Clear(), nil
		}
		return board.Snapshot(), nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return board.Ensure(ctx, token, company, window)
}

// Predict requests a forecast for the selected company
func (a *App) Predict(ctx context.Context, sessionID, token string) (dashboard.Snapshot, error) {
	if token == "" {
		return dashboard.Snapshot{State: dashboard.StateUnauthenticated}, ErrUnauthorized
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.boards.Board(sessionID).Predict(ctx, token)
}

// ClearDashboard drops the selection and its data
func (a *App) ClearDashboard(sessionID string) dashboard.Snapshot {
	return a.boards.Board(sessionID).Clear()
}

// EndSession forgets everything held for the session
func (a *App) EndSession(sessionID string) {
	a.boards.Remove(sessionID)
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	seconds := a.cfg.HTTP.RequestTimeoutSeconds
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}
