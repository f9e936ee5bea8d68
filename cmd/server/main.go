package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"exceltojira/internal/config"
	"exceltojira/internal/core"
	"exceltojira/internal/jira"
	"exceltojira/internal/logging"
	"exceltojira/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"jira_base_url", cfg.Jira.BaseURL,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Jira credentials are checked lazily at batch submission, so a
	// server without credentials still starts and serves uploads.
	if err := cfg.Jira.Check(); err != nil {
		slog.Warn("jira configuration incomplete, ticket creation will be rejected", "reason", err)
	}

	client := jira.NewClient(jira.Config{
		BaseURL:    cfg.Jira.BaseURL,
		Email:      cfg.Jira.Email,
		APIToken:   cfg.Jira.APIToken,
		ProjectKey: cfg.Jira.ProjectKey,
		Timeout:    cfg.Jira.Timeout,
	})

	service := core.NewService(cfg, client, nil)
	server := web.NewServer(cfg, service)

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSweepScheduler(jobCtx, cfg.Retention.SweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
