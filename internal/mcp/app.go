package mcp

import (
	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/app"
)

// NewCLIApp creates a CLI application instance backed by the provided container.
func NewCLIApp(container *app.Container) *cli.App {
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

	return cliApp
}
