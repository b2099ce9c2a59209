package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/klarity/internal/app"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/inboxsync"
	"github.com/felixgeelhaar/klarity/pkg/config"
	"github.com/felixgeelhaar/klarity/pkg/observability"
)

const statsInterval = 5 * time.Minute

func main() {
	logger := observability.LoggerFromEnv("klarity-sync")
	logger.Info("starting klarity sync daemon")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	svc, err := container.RequireSync()
	if err != nil {
		logger.Error("sync daemon cannot start", "error", err)
		os.Exit(1)
	}

	poller, err := svc.NewPoller(ctx, inboxsync.PollerConfig{Interval: cfg.PollInterval})
	if err != nil {
		logger.Error("failed to create poller", "error", err)
		os.Exit(1)
	}
	container.Health.Register("sync", observability.FailureThresholdChecker(func() int {
		return poller.Stats().ConsecutiveFailures
	}, cfg.MaxSyncFailures))

	logger.Info("starting poller",
		"resource", svc.Resource().Key(),
		"poll_interval", cfg.PollInterval,
		"max_failures", cfg.MaxSyncFailures,
	)
	stop := poller.Start(ctx)

	if cfg.SyncHealthAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			stats := poller.Stats()
			response := map[string]any{
				"status":               "ok",
				"running":              poller.IsRunning(),
				"cycles":               stats.Cycles,
				"changes":              stats.Changes,
				"failures":             stats.Failures,
				"consecutive_failures": stats.ConsecutiveFailures,
				"last_success":         stats.LastSuccess,
				"breaker":              container.GitHubClient.BreakerState(),
			}
			if stats.LastError != nil {
				response["last_error"] = stats.LastError.Error()
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(response)
		})
		mux.Handle("/readyz", container.Health.Handler())

		healthSrv := &http.Server{
			Addr:              cfg.SyncHealthAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("health server starting", "addr", cfg.SyncHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
		}()
	}

	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				stats := poller.Stats()
				logger.Info("sync stats",
					"cycles", stats.Cycles,
					"changes", stats.Changes,
					"failures", stats.Failures,
					"consecutive_failures", stats.ConsecutiveFailures,
					"last_success", stats.LastSuccess,
					"counters", container.Metrics.Counters(),
					"breaker", container.GitHubClient.BreakerState(),
				)
			}
		}
	}()

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down sync daemon")

	stop()
	<-poller.Done()
	logger.Info("sync daemon stopped")
}
