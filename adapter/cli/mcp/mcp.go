// Package mcp holds the "klarity mcp" commands.
package mcp

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/klarity/internal/app"
	mcpinternal "github.com/felixgeelhaar/klarity/internal/mcp"
	"github.com/felixgeelhaar/klarity/pkg/config"
	"github.com/felixgeelhaar/klarity/pkg/observability"
)

// Cmd is the MCP command group.
var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the inbox to agents over MCP",
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server in the foreground",
	Long: `Start the MCP server with its own sync service.

Agents reach the inbox tools over HTTP at MCP_ADDR. Set MCP_AUTH_TOKEN to
require a bearer token. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.MCPAddr = serveAddr
		}

		level := "info"
		if cfg.IsDevelopment() {
			level = "debug"
		}
		logger := observability.NewLogger(observability.LogConfig{
			Level:   level,
			Output:  cmd.ErrOrStderr(),
			Service: "klarity-mcp",
		})

		container, err := app.NewContainer(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		err = mcpinternal.Serve(cmd.Context(), cfg, mcpinternal.NewCLIApp(container), container.Health, logger)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides MCP_ADDR")
	Cmd.AddCommand(serveCmd)
}
