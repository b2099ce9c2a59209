package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/klarity/internal/app"
	mcpinternal "github.com/felixgeelhaar/klarity/internal/mcp"
	"github.com/felixgeelhaar/klarity/pkg/config"
	"github.com/felixgeelhaar/klarity/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv("klarity-mcp")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

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

	if container.SyncService == nil {
		logger.Warn("github sync not configured; inbox.sync and inbox.push will fail")
	}

	err = mcpinternal.Serve(ctx, cfg, mcpinternal.NewCLIApp(container), container.Health, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}

