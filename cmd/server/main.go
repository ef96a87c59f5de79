package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/changeorders/internal/config"
	"github.com/JonMunkholm/changeorders/internal/fieldstore"
	"github.com/JonMunkholm/changeorders/internal/host"
	"github.com/JonMunkholm/changeorders/internal/logging"
	"github.com/JonMunkholm/changeorders/internal/metrics"
	"github.com/JonMunkholm/changeorders/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"max_sessions", cfg.Session.MaxSessions,
		"idle_timeout", cfg.Session.IdleTimeout,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	store, err := fieldstore.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open field store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("field store ready", "driver", cfg.Store.Driver)

	var m *metrics.Metrics
	opts := []host.Option{host.WithStoreTimeout(cfg.Store.OpTimeout)}
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, host.WithMetrics(m))
	}
	sessions := host.NewManager(store, cfg.Session, opts...)

	server := web.NewServer(cfg, sessions, store, m)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go sessions.StartReaper(jobCtx)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Every edit is saved as it happens; closing only releases the editors.
		slog.Info("closing editor sessions", "open", sessions.Len())
		sessions.CloseAll()
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
