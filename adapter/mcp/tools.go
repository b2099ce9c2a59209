// Package mcp exposes the inbox to agents as MCP tools, resources and prompts.
package mcp

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/pkg/observability"
	"github.com/felixgeelhaar/mcp-go"
)

// ToolDependencies is what the tool handlers call into.
type ToolDependencies struct {
	App    *cli.App
	Health *observability.HealthRegistry
}

var toolGroups = []struct {
	name     string
	register func(*mcp.Server, ToolDependencies) error
}{
	{"core", registerCoreTools},
	{"inbox", registerInboxTools},
}

// RegisterCLITools registers the tools that mirror the klarity CLI.
func RegisterCLITools(srv *mcp.Server, deps ToolDependencies) error {
	switch {
	case srv == nil:
		return errors.New("server is required")
	case deps.App == nil:
		return errors.New("app is required")
	}
	for _, group := range toolGroups {
		if err := group.register(srv, deps); err != nil {
			return fmt.Errorf("register %s tools: %w", group.name, err)
		}
	}
	return nil
}
