package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"snooptrade/config"
	"snooptrade/internal/app"
	"snooptrade/internal/dashboard"
	"snooptrade/internal/session"
	"snooptrade/internal/view"
	"snooptrade/models"
	"snooptrade/observability"
)

// Handler serves the SnoopTrade pages
type Handler struct {
	app      *app.App
	cfg      *config.Config
	sessions *session.Manager
	options  view.DashboardOptions
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, sessions *session.Manager, cfg *config.Config) *Handler {
	return &Handler{
		app:      application,
		cfg:      cfg,
		sessions: sessions,
		options:  view.NewDashboardOptions(cfg.Dashboard),
	}
}

// isHTMXRequest checks if the request is from HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect navigates the browser; htmx requests are told via HX-Redirect
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func currentSession(r *http.Request) *session.Session {
	s, _ := session.FromContext(r.Context())
	return s
}

func token(r *http.Request) string {
	t, _ := currentSession(r).Token()
	return t
}

func (h *Handler) nav(r *http.Request) view.Nav {
	return view.Nav{
		Authenticated:  currentSession(r).Authenticated(),
		GoogleClientID: h.cfg.Google.ClientID,
	}
}

// htmlResponse renders a templ component
func (h *Handler) htmlResponse(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// htmx only swaps 2xx responses
	if isHTMXRequest(r) && status >= 400 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		observability.WithContext(r.Context()).Error("failed to render page", "path", r.URL.Path, "error", err)
	}
}

// page renders the partial for htmx requests and the full page otherwise
func (h *Handler) page(w http.ResponseWriter, r *http.Request, status int, partial, full templ.Component) {
	if isHTMXRequest(r) {
		h.htmlResponse(w, r, status, partial)
		return
	}
	h.htmlResponse(w, r, status, full)
}

// jsonResponse writes a JSON response
func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		observability.Error("failed to encode JSON response", "error", err)
	}
}

// endSession logs the browser out after the upstream rejected its token
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request, reason string) {
	s := currentSession(r)
	if s != nil {
		h.app.EndSession(s.ID)
	}
	if err := h.sessions.Destroy(r.Context(), w, s, reason); err != nil {
		observability.WithContext(r.Context()).Error("failed to destroy session", "error", err)
	}
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r, session.ReasonUnauthorized)
	redirect(w, r, "/login")
}

// HandleIndex serves the landing page, or the dashboard once signed in
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if currentSession(r).Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.htmlResponse(w, r, http.StatusOK, view.LandingPage(h.nav(r)))
}

// HandleLanding serves the landing page
func (h *Handler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	h.htmlResponse(w, r, http.StatusOK, view.LandingPage(h.nav(r)))
}

// HandleFeatures serves the features page
func (h *Handler) HandleFeatures(w http.ResponseWriter, r *http.Request) {
	h.htmlResponse(w, r, http.StatusOK, view.FeaturesPage(h.nav(r)))
}

// HandleAbout serves the about page
func (h *Handler) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.htmlResponse(w, r, http.StatusOK, view.AboutPage(h.nav(r)))
}

// HandleNotFound serves unknown routes
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.htmlResponse(w, r, http.StatusNotFound, view.NotFoundPage(h.nav(r)))
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":          "ok",
		"session_backend": h.cfg.Session.Backend,
		"dashboards":      h.app.Boards().Len(),
	}

	// Add circuit breaker status
	cbStatus := h.app.BreakerStatus()
	status["circuit_breakers"] = cbStatus

	// Check if any breakers are open (degraded state)
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, http.StatusOK, status)
}

// HandleLoginPage serves the login form
func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if currentSession(r).Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.htmlResponse(w, r, http.StatusOK, view.LoginPage(h.nav(r), view.LoginForm{}))
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, email string, err error) {
	form := view.LoginForm{Email: email, Error: app.MsgSomethingWrong, GoogleClientID: h.cfg.Google.ClientID}
	var fe *app.FormError
	if errors.As(err, &fe) {
		form.Error = fe.Message
	}
	observability.WithContext(r.Context()).Info("login failed", "error", err)
	h.page(w, r, http.StatusUnauthorized, view.LoginFormPartial(form), view.LoginPage(h.nav(r), form))
}

// completeLogin stores the token in a fresh session and opens the dashboard
func (h *Handler) completeLogin(w http.ResponseWriter, r *http.Request, accessToken string) {
	prev := currentSession(r)
	if _, err := h.sessions.Login(r.Context(), w, prev, accessToken); err != nil {
		observability.WithContext(r.Context()).Error("failed to start session", "error", err)
		h.htmlResponse(w, r, http.StatusInternalServerError, view.ErrorState(app.MsgSomethingWrong))
		return
	}
	if prev != nil {
		h.app.EndSession(prev.ID)
	}
	redirect(w, r, "/dashboard")
}

// HandleLogin exchanges the submitted credentials for a session
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginFailed(w, r, "", err)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))

	accessToken, err := h.app.Login(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		h.loginFailed(w, r, email, err)
		return
	}
	h.completeLogin(w, r, accessToken)
}

// HandleGoogleLogin receives the Google Identity Services credential post
func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginFailed(w, r, "", err)
		return
	}
	accessToken, err := h.app.LoginGoogle(r.Context(), r.PostFormValue("credential"))
	if err != nil {
		h.loginFailed(w, r, "", err)
		return
	}
	h.completeLogin(w, r, accessToken)
}

// HandleSignUpPage serves the signup form
func (h *Handler) HandleSignUpPage(w http.ResponseWriter, r *http.Request) {
	h.htmlResponse(w, r, http.StatusOK, view.SignUpPage(h.nav(r), view.SignUpForm{}))
}

// HandleSignUp registers an account
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.htmlResponse(w, r, http.StatusBadRequest, view.ErrorState(app.MsgSomethingWrong))
		return
	}
	form := view.SignUpForm{
		Name:  r.PostFormValue("name"),
		Email: r.PostFormValue("email"),
	}

	status := http.StatusOK
	err := h.app.SignUp(r.Context(), form.Name, form.Email,
		r.PostFormValue("password"), r.PostFormValue("confirm_password"))

	var verrs app.ValidationErrors
	var fe *app.FormError
	switch {
	case err == nil:
		form.Success = true
	case errors.As(err, &verrs):
		form.Errors = verrs
		status = http.StatusUnprocessableEntity
	case errors.As(err, &fe):
		form.Error = fe.Message
		status = http.StatusBadRequest
	default:
		form.Error = app.MsgSomethingWrong
		status = http.StatusInternalServerError
	}
	h.page(w, r, status, view.SignUpFormPartial(form), view.SignUpPage(h.nav(r), form))
}

// HandleLogout ends the session
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r, session.ReasonLogout)
	redirect(w, r, "/")
}

// parseQuery reads the dashboard selection from URL parameters
func parseQuery(values url.Values) view.Query {
	q := view.Query{
		Company: strings.ToUpper(strings.TrimSpace(values.Get("company"))),
		Search:  strings.TrimSpace(values.Get("q")),
		Sort:    dashboard.ParseColumn(values.Get("sort")),
		Desc:    values.Get("dir") == "desc",
		Log:     values.Get("log") == "1" || values.Get("log") == "true",
		From:    values.Get("from"),
		To:      values.Get("to"),
	}
	if w, err := models.ParseTimeWindow(values.Get("window")); err == nil {
		q.Window = w
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	if size, err := strconv.Atoi(values.Get("size")); err == nil && config.IsPageSize(size) {
		q.Size = size
	}
	return q
}

// queryFromSelection restores the dashboard a session last showed
func queryFromSelection(sel session.Selection) view.Query {
	return view.Query{
		Company: sel.Company,
		Window:  sel.Window,
		Sort:    dashboard.ParseColumn(sel.Sort),
		Desc:    sel.Desc,
		Page:    sel.Page,
		Size:    sel.PageSize,
		Log:     sel.LogScale,
	}
}

func selectionFromQuery(q view.Query) session.Selection {
	return session.Selection{
		Company:  q.Company,
		Window:   q.Window,
		Sort:     string(q.Sort),
		Desc:     q.Desc,
		Page:     q.Page,
		PageSize: q.Size,
		LogScale: q.Log,
	}
}

// remember stores the selection on the session when it changed
func (h *Handler) remember(ctx context.Context, s *session.Session, q view.Query) {
	sel := selectionFromQuery(q)
	if s == nil || s.Selection == sel {
		return
	}
	s.Selection = sel
	if err := h.sessions.Save(ctx, s); err != nil {
		observability.WithSession(s.ID).Warn("failed to save dashboard selection", "error", err)
	}
}

// renderDashboard brings the board to q and renders it
func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, q view.Query, snap dashboard.Snapshot) {
	v := view.NewDashboardView(snap, q, h.options)
	h.page(w, r, http.StatusOK, view.DashboardPartial(v), view.DashboardPage(h.nav(r), v))
}

// HandleDashboard loads and renders the selected company
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	q := parseQuery(r.URL.Query())
	if len(r.URL.Query()) == 0 && s.Selection.Company != "" {
		q = queryFromSelection(s.Selection)
	}

	company, window, err := h.app.ResolveSelection(q.Company, string(q.Window))
	if errors.Is(err, app.ErrUnknownCompany) {
		h.page(w, r, http.StatusNotFound, view.ErrorState("Unknown company "+q.Company),
			view.Layout("Dashboard | SnoopTrade", h.nav(r), view.ErrorState("Unknown company "+q.Company)))
		return
	}
	q.Company = company
	if company != "" {
		q.Window = window
	}

	snap, err := h.app.Dashboard(r.Context(), s.ID, token(r), company, window)
	if errors.Is(err, app.ErrUnauthorized) {
		h.unauthorized(w, r)
		return
	}
	if err != nil {
		observability.WithCompany(company).Error("dashboard load failed", "error", err)
	}

	h.remember(r.Context(), s, q)
	h.renderDashboard(w, r, q, snap)
}

// HandlePredict runs a forecast for the current selection
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	q := queryFromSelection(s.Selection)
	if err := r.ParseForm(); err == nil {
		q.Log = r.PostFormValue("log") == "1"
	}

	// make sure the board holds the selection before forecasting
	if q.Company != "" {
		if _, err := h.app.Dashboard(r.Context(), s.ID, token(r), q.Company, q.Window); errors.Is(err, app.ErrUnauthorized) {
			h.unauthorized(w, r)
			return
		}
	}

	snap, err := h.app.Predict(r.Context(), s.ID, token(r))
	if errors.Is(err, app.ErrUnauthorized) {
		h.unauthorized(w, r)
		return
	}

	h.remember(r.Context(), s, q)
	h.renderDashboard(w, r, q, snap)
}

// HandleClearDashboard drops the selected company
func (h *Handler) HandleClearDashboard(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	snap := h.app.ClearDashboard(s.ID)
	h.remember(r.Context(), s, view.Query{})

	if !isHTMXRequest(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	w.Header().Set("HX-Push-Url", "/dashboard")
	h.renderDashboard(w, r, view.Query{}, snap)
}

// HandleAccountPage shows the account settings
func (h *Handler) HandleAccountPage(w http.ResponseWriter, r *http.Request) {
	form := view.AccountForm{}
	profile, err := h.app.Profile(r.Context(), token(r))
	switch {
	case errors.Is(err, app.ErrUnauthorized):
		h.unauthorized(w, r)
		return
	case err != nil:
		form.Error = app.MsgProfileFailed
	default:
		form.Profile = *profile
		form.Name = profile.Name
	}
	h.htmlResponse(w, r, http.StatusOK, view.AccountPage(h.nav(r), form))
}

// HandleAccountUpdate saves the account settings
func (h *Handler) HandleAccountUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.htmlResponse(w, r, http.StatusBadRequest, view.ErrorState(app.MsgSomethingWrong))
		return
	}
	form := view.AccountForm{
		Name:    r.PostFormValue("name"),
		Profile: models.Profile{Email: r.PostFormValue("email"), Name: r.PostFormValue("name")},
	}

	status := http.StatusOK
	err := h.app.UpdateProfile(r.Context(), token(r), form.Name,
		r.PostFormValue("password"), r.PostFormValue("confirm_password"))

	var verrs app.ValidationErrors
	var fe *app.FormError
	switch {
	case errors.Is(err, app.ErrUnauthorized):
		h.unauthorized(w, r)
		return
	case err == nil:
		form.Name = strings.TrimSpace(form.Name)
		form.Profile.Name = form.Name
		form.Notice = app.MsgProfileUpdated
	case errors.As(err, &verrs):
		form.Errors = verrs
		status = http.StatusUnprocessableEntity
	case errors.As(err, &fe):
		form.Error = fe.Message
		status = http.StatusBadRequest
	default:
		form.Error = app.MsgUpdateFailed
		status = http.StatusInternalServerError
	}
	h.page(w, r, status, view.AccountFormPartial(form), view.AccountPage(h.nav(r), form))
}
