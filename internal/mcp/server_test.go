package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/felixgeelhaar/klarity/internal/app"
	"github.com/felixgeelhaar/klarity/pkg/config"
	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewServer_RegistersInboxTools(t *testing.T) {
	cfg := &config.Config{AppEnv: "test", DataDir: t.TempDir(), Store: config.StoreJSON, Events: config.EventsNone}
	container, err := app.NewContainer(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer container.Close()

	srv, err := NewServer(NewCLIApp(container), container.Health, quietLogger())
	require.NoError(t, err)

	tc := testutil.NewTestClient(t, srv)
	defer tc.Close()

	tools, err := tc.ListTools()
	require.NoError(t, err)
	names := make([]any, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool["name"])
	}
	assert.Contains(t, names, "inbox.respond")
	assert.Contains(t, names, "inbox.sync")
}

func TestNewServer_RequiresApp(t *testing.T) {
	_, err := NewServer(nil, nil, quietLogger())
	assert.Error(t, err)
}

func TestServe_RequiresConfig(t *testing.T) {
	err := Serve(context.Background(), nil, nil, nil, quietLogger())
	assert.ErrorContains(t, err, "config is required")
}

func TestMiddlewareStack_AddsAuthWithToken(t *testing.T) {
	open := middlewareStack(&config.Config{}, quietLogger())
	secured := middlewareStack(&config.Config{MCPAuthToken: "secret"}, quietLogger())

	assert.Len(t, secured, len(open)+1)
}

func TestNewCLIApp_WiresSyncWhenConfigured(t *testing.T) {
	cfg := &config.Config{AppEnv: "test", DataDir: t.TempDir(), Store: config.StoreJSON, Events: config.EventsInProcess}
	container, err := app.NewContainer(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer container.Close()

	cliApp := NewCLIApp(container)

	assert.Nil(t, cliApp.SyncService)
	assert.Same(t, container.EventBus, cliApp.EventBus)
	assert.NotNil(t, cliApp.ListItemsHandler)
}
