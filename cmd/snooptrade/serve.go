package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"snooptrade/config"
	"snooptrade/internal/api"
	"snooptrade/internal/app"
	"snooptrade/internal/session"
	"snooptrade/observability"
	"snooptrade/repository"
	"snooptrade/services"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the SnoopTrade web server" }
func (*serveCmd) Usage() string {
	return `snooptrade serve [-addr :8080]

  Starts the HTTP server. Configuration comes from the environment, an
  optional .env file and the YAML file named by SNOOPTRADE_CONFIG.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Overrides HTTP_ADDR.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if c.addr != "" {
		cfg.HTTP.Addr = c.addr
	}

	observability.InitLogger(cfg.HTTP.Production)
	metrics := observability.InitMetrics()

	if !cfg.HasSecret() {
		cfg.Session.Secret = randomSecret()
		observability.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	store, closeStore, err := openSessionStore(ctx, cfg, metrics)
	if err != nil {
		observability.Error("failed to open session store", "backend", cfg.Session.Backend, "error", err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	ttl := time.Duration(cfg.Session.TTLHours) * time.Hour
	sessions := session.NewManager(store, session.ManagerConfig{
		CookieName: cfg.Session.CookieName,
		Secret:     cfg.Session.Secret,
		TTL:        ttl,
		Secure:     cfg.Session.SecureCookie,
	}, metrics)

	upstream := services.NewSnoopTradeService(cfg.Upstream)
	application := app.New(cfg, upstream, metrics)

	janitor, err := session.NewJanitor(ctx, cfg.Session.CleanupCron, store, application.Boards().PruneTask(ttl))
	if err != nil {
		observability.Error("invalid cleanup schedule", "schedule", cfg.Session.CleanupCron, "error", err)
		return subcommands.ExitFailure
	}
	janitor.Start()
	defer janitor.Stop()

	handler := api.NewHandler(application, sessions, cfg)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(handler, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		observability.Info("starting server", "addr", cfg.HTTP.Addr, "upstream", cfg.Upstream.BaseURL, "session_backend", cfg.Session.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
		return subcommands.ExitFailure
	}
	observability.Info("server stopped")
	return subcommands.ExitSuccess
}

// openSessionStore builds the configured backend. Shared backends get
// their tokens sealed; every backend is instrumented.
func openSessionStore(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (session.Store, func(), error) {
	var (
		store session.Store
		cleanup = func() {}
	)

	switch cfg.Session.Backend {
	case config.BackendRedis:
		client, err := session.NewRedisClient(ctx, cfg.Session.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store = session.NewRedisStore(client, "snooptrade:session:")
		cleanup = func() { _ = client.Close() }

	case config.BackendPostgres:
		repo, err := repository.NewRepository(ctx, cfg.Session.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, nil, err
		}
		store = repository.NewSessionStore(repo)
		cleanup = repo.Close

	default:
		return session.NewInstrumentedStore(session.NewMemoryStore(), config.BackendMemory, metrics), cleanup, nil
	}

	sealer, err := session.NewSealer(cfg.Session.Secret)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	store = session.NewSealedStore(store, sealer)
	return session.NewInstrumentedStore(store, cfg.Session.Backend, metrics), cleanup, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		observability.Fatal("failed to generate session secret", "error", err)
	}
	return hex.EncodeToString(b)
}
