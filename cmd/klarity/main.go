package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/adapter/cli/inbox"
	"github.com/felixgeelhaar/klarity/adapter/cli/mcp"
	"github.com/felixgeelhaar/klarity/internal/app"
	"github.com/felixgeelhaar/klarity/pkg/config"
	"github.com/felixgeelhaar/klarity/pkg/observability"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Debug logs only when asked for
	if os.Getenv("LOG_LEVEL") != "" {
		logger = observability.LoggerFromEnv(observability.DefaultServiceName)
	}
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Warn("failed to open inbox, only offline commands are available", "error", err)
	} else {
		defer container.Close()

		cliApp := cli.NewApp(
			container.CaptureItemHandler,
			container.AddReplyHandler,
			container.SetStatusHandler,
			container.MarkReadHandler,
			container.ListItemsHandler,
			container.GetItemHandler,
			container.UnreadCountHandler,
		)
		if container.SyncService != nil {
			cliApp.SetSyncService(container.SyncService)
		}
		cliApp.SetEventBus(container.EventBus)
		cliApp.SetHealth(container.Health)
		cli.SetApp(cliApp)
	}

	// Register commands
	cli.AddCommand(inbox.Cmd)
	cli.AddCommand(mcp.Cmd)

	// Execute CLI
	cli.Execute(ctx)
}
