package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	internalApp "github.com/felixgeelhaar/klarity/internal/app"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/commands"
	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/klarity/pkg/config"
	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *cli.App {
	t.Helper()
	cfg := &config.Config{
		AppEnv:  "test",
		DataDir: t.TempDir(),
		Store:   config.StoreJSON,
		Events:  config.EventsNone,
	}
	container, err := internalApp.NewContainer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return cli.NewApp(
		container.CaptureItemHandler,
		container.AddReplyHandler,
		container.SetStatusHandler,
		container.MarkReadHandler,
		container.ListItemsHandler,
		container.GetItemHandler,
		container.UnreadCountHandler,
	)
}

func captureUserItem(t *testing.T, app *cli.App, text string) string {
	t.Helper()
	result, err := app.CaptureItemHandler.Handle(context.Background(), commands.CaptureItemCommand{Text: text, ForAgent: true})
	require.NoError(t, err)
	return result.Item.ID
}

func TestRegisterCLITools_ListTools(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "test",
		Version: "1.0.0",
		Capabilities: mcp.Capabilities{
			Tools: true,
		},
	})

	require.NoError(t, RegisterCLITools(srv, ToolDependencies{App: &cli.App{}}))

	tc := testutil.NewTestClient(t, srv)
	defer tc.Close()

	tools, err := tc.ListTools()
	require.NoError(t, err)

	names := make([]any, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool["name"])
	}
	for _, want := range []string{
		"cli.health", "inbox.list", "inbox.get", "inbox.reply", "inbox.respond",
		"inbox.set_status", "inbox.sync", "inbox.push",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRegisterCLITools_RequiresApp(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{Name: "test", Version: "1.0.0"})

	assert.Error(t, RegisterCLITools(srv, ToolDependencies{}))
	assert.Error(t, RegisterCLITools(nil, ToolDependencies{App: &cli.App{}}))
}

func TestInboxTools_ReplyMarksUnread(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	tools := inboxTools{app: app}
	id := captureUserItem(t, app, "summarize the standup")

	item, err := tools.reply(ctx, inboxReplyInput{ItemID: id, Text: "  done, see notes  "})

	require.NoError(t, err)
	require.Len(t, item.Replies, 1)
	assert.Equal(t, "agent", item.Replies[0].Author)
	assert.Equal(t, "done, see notes", item.Replies[0].Text)
	assert.False(t, item.Read)

	unread, err := tools.unreadCount(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 1, unread.Unread)
}

func TestInboxTools_RespondCreatesLinkedItem(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	tools := inboxTools{app: app}
	id := captureUserItem(t, app, "research sqlite wal mode")

	item, err := tools.respond(ctx, inboxRespondInput{ItemID: id, Text: "WAL is on by default here", Priority: "p2"})

	require.NoError(t, err)
	assert.Equal(t, string(domain.TypeAgentResponse), item.Type)
	assert.Equal(t, id, item.ParentID)
	assert.Equal(t, "agent", item.Author)
	assert.Equal(t, "P2", item.Priority)
	assert.False(t, item.Read)

	_, err = tools.respond(ctx, inboxRespondInput{ItemID: "inbox-missing", Text: "lost"})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestInboxTools_SetStatusAndList(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	tools := inboxTools{app: app}
	first := captureUserItem(t, app, "first")
	captureUserItem(t, app, "second")

	item, err := tools.setStatus(ctx, inboxSetStatusInput{ItemID: first, Status: "Done"})
	require.NoError(t, err)
	assert.Equal(t, "done", item.Status)

	done, err := tools.list(ctx, inboxListInput{Status: "done"})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, first, done[0].ID)

	all, err := tools.list(ctx, inboxListInput{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = tools.setStatus(ctx, inboxSetStatusInput{ItemID: first, Status: "archived"})
	assert.ErrorContains(t, err, "invalid status")
}

func TestInboxTools_InputValidation(t *testing.T) {
	ctx := context.Background()
	tools := inboxTools{app: newTestApp(t)}

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"get without id", func() error { _, err := tools.get(ctx, inboxItemInput{}); return err }, "item_id is required"},
		{"reply without text", func() error { _, err := tools.reply(ctx, inboxReplyInput{ItemID: "x", Text: " "}); return err }, "text is required"},
		{"respond without id", func() error { _, err := tools.respond(ctx, inboxRespondInput{Text: "x"}); return err }, "item_id is required"},
		{"capture without text", func() error { _, err := tools.capture(ctx, inboxCaptureInput{}); return err }, "text is required"},
		{"list with bad status", func() error { _, err := tools.list(ctx, inboxListInput{Status: "open"}); return err }, "invalid status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.call(), tt.want)
		})
	}
}

func TestInboxTools_SyncRequiresConfiguration(t *testing.T) {
	tools := inboxTools{app: newTestApp(t)}

	_, err := tools.sync(context.Background(), struct{}{})
	assert.ErrorIs(t, err, cli.ErrSyncNotConfigured)

	_, err = tools.push(context.Background(), struct{}{})
	assert.ErrorIs(t, err, cli.ErrSyncNotConfigured)
}
