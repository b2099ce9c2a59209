package mcp

import (
	"context"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/pkg/observability"
	"github.com/felixgeelhaar/mcp-go"
)

func registerCoreTools(srv *mcp.Server, deps ToolDependencies) error {
	srv.Tool("cli.health").
		Description("Check the local store, GitHub and event broker").
		Handler(func(ctx context.Context, input struct{}) (*observability.OverallHealth, error) {
			if deps.Health == nil {
				return &observability.OverallHealth{Status: observability.HealthStatusHealthy}, nil
			}
			health := deps.Health.GetOverallHealth(ctx)
			return &health, nil
		})

	srv.Tool("cli.version").
		Description("Report the klarity build running this server").
		Handler(func(ctx context.Context, input struct{}) (cli.VersionInfo, error) {
			return cli.BuildInfo(), nil
		})

	return nil
}
