// Package main provides a standalone HTTP server for E2E testing.
// It runs the same routes and handlers as snooptrade serve, but against an
// in-process mock of the SnoopTrade API, making it suitable for browser tests.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snooptrade/config"
	"snooptrade/e2e/mocks"
	"snooptrade/internal/api"
	"snooptrade/internal/app"
	"snooptrade/internal/session"
	"snooptrade/observability"
	"snooptrade/services"
)

func main() {
	// Initialize logger in development mode for tests
	observability.InitLogger(false)
	metrics := observability.InitMetrics()

	port := os.Getenv("E2E_SERVER_PORT")
	if port == "" {
		port = "9090"
	}

	upstream := mocks.NewMockServer()
	defer upstream.Close()
	observability.Info("mock upstream started", "url", upstream.URL())

	cfg := config.NewTestConfig()
	cfg.Upstream.BaseURL = upstream.URL()
	cfg.Dashboard.Companies = []string{"AAPL", "MSFT", "NVDA"}
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		cfg.Google.ClientID = id
	}

	sessions := session.NewManager(session.NewMemoryStore(), session.ManagerConfig{
		CookieName: cfg.Session.CookieName,
		Secret:     cfg.Session.Secret,
		TTL:        time.Hour,
	}, metrics)

	application := app.New(cfg, services.NewSnoopTradeService(cfg.Upstream), metrics)
	handler := api.NewHandler(application, sessions, cfg)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      api.NewRouter(handler, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		observability.Info("starting E2E test server", "port", port, "url", fmt.Sprintf("http://localhost:%s", port),
			"user", mocks.DefaultUser.Email)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down E2E test server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}
	observability.Info("E2E test server stopped")
}
