package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"snooptrade/config"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.HTTP.RequestTimeoutSeconds) * time.Second))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)
	r.Use(SessionMiddleware(h.sessions))

	r.NotFound(h.HandleNotFound)

	// Public pages
	r.Get("/", h.HandleIndex)
	r.Get("/landing", h.HandleLanding)
	r.Get("/features", h.HandleFeatures)
	r.Get("/about", h.HandleAbout)

	// Authentication
	r.Get("/login", h.HandleLoginPage)
	r.Post("/login", h.HandleLogin)
	r.Post("/login/google", h.HandleGoogleLogin)
	r.Get("/signup", h.HandleSignUpPage)
	r.Post("/signup", h.HandleSignUp)
	r.Post("/logout", h.HandleLogout)

	// Signed-in pages
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", h.HandleDashboard)
			r.Post("/predict", h.HandlePredict)
			r.Post("/clear", h.HandleClearDashboard)
		})

		r.Get("/account", h.HandleAccountPage)
		r.Post("/account", h.HandleAccountUpdate)
	})

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/health", h.HandleHealth)

	return r
}
