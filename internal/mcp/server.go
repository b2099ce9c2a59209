package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	mcplocal "github.com/felixgeelhaar/klarity/adapter/mcp"
	"github.com/felixgeelhaar/klarity/pkg/config"
	"github.com/felixgeelhaar/klarity/pkg/observability"
	mcpgo "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/middleware"
)

// NewServer builds the MCP server with the inbox tools, resources and prompts registered.
func NewServer(cliApp *cli.App, health *observability.HealthRegistry, logger *slog.Logger) (*mcpgo.Server, error) {
	if cliApp == nil {
		return nil, errors.New("CLI app is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv := mcpgo.NewServer(mcpgo.ServerInfo{
		Name:    "klarity-mcp",
		Version: cli.Version,
		Capabilities: mcpgo.Capabilities{
			Tools:     true,
			Resources: true,
			Prompts:   true,
		},
	})

	deps := mcplocal.ToolDependencies{App: cliApp, Health: health}
	if err := mcplocal.RegisterCLITools(srv, deps); err != nil {
		return nil, err
	}
	// Agents can work without resources and prompts.
	for name, register := range map[string]func(*mcpgo.Server, mcplocal.ToolDependencies) error{
		"resources": mcplocal.RegisterResources,
		"prompts":   mcplocal.RegisterPrompts,
	} {
		if err := register(srv, deps); err != nil {
			logger.Warn("failed to register MCP "+name, "error", err)
		}
	}
	return srv, nil
}

// Serve starts an MCP server over HTTP and blocks until the context is canceled.
func Serve(ctx context.Context, cfg *config.Config, cliApp *cli.App, health *observability.HealthRegistry, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := NewServer(cliApp, health, logger)
	if err != nil {
		return err
	}

	logger.Info("mcp server listening", "addr", cfg.MCPAddr, "auth", cfg.MCPAuthToken != "")
	return mcpgo.ServeHTTPWithMiddleware(ctx, srv, cfg.MCPAddr, nil, mcpgo.WithMiddleware(middlewareStack(cfg, logger)...))
}

// middlewareStack puts bearer auth in front of the default stack when a token is configured.
func middlewareStack(cfg *config.Config, logger *slog.Logger) []middleware.Middleware {
	adapter := mcpLogger{logger: logger}
	stack := middleware.DefaultStack(adapter)

	if cfg.MCPAuthToken == "" {
		logger.Warn("MCP auth token not set; requests will be unauthenticated")
		return stack
	}
	authenticator := middleware.BearerTokenAuthenticator(middleware.StaticTokens(map[string]*middleware.Identity{
		cfg.MCPAuthToken: {ID: "agent", Name: "agent"},
	}))
	return append([]middleware.Middleware{middleware.Auth(authenticator, middleware.WithAuthLogger(adapter))}, stack...)
}

// mcpLogger routes mcp-go middleware logs into slog.
type mcpLogger struct {
	logger *slog.Logger
}

func (l mcpLogger) Debug(msg string, fields ...middleware.Field) { l.log(slog.LevelDebug, msg, fields) }
func (l mcpLogger) Info(msg string, fields ...middleware.Field)  { l.log(slog.LevelInfo, msg, fields) }
func (l mcpLogger) Warn(msg string, fields ...middleware.Field)  { l.log(slog.LevelWarn, msg, fields) }
func (l mcpLogger) Error(msg string, fields ...middleware.Field) { l.log(slog.LevelError, msg, fields) }

func (l mcpLogger) log(level slog.Level, msg string, fields []middleware.Field) {
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
