package cli

import (
	"errors"

	"github.com/felixgeelhaar/klarity/internal/inbox/application/commands"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/inboxsync"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/queries"
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/klarity/pkg/observability"
)

// ErrSyncNotConfigured is returned by sync commands when no GitHub repository is set up.
var ErrSyncNotConfigured = errors.New("github sync is not configured: set KLARITY_GITHUB_TOKEN and KLARITY_GITHUB_OWNER")

// App holds the CLI application dependencies.
type App struct {
	// Inbox Command Handlers
	CaptureItemHandler *commands.CaptureItemHandler
	AddReplyHandler    *commands.AddReplyHandler
	SetStatusHandler   *commands.SetStatusHandler
	MarkReadHandler    *commands.MarkReadHandler

	// Inbox Query Handlers
	ListItemsHandler   *queries.ListItemsHandler
	GetItemHandler     *queries.GetItemHandler
	UnreadCountHandler *queries.UnreadCountHandler

	// Remote sync, nil when not configured
	SyncService *inboxsync.Service

	// EventBus delivers inbox events inside the process
	EventBus *eventbus.InProcessEventBus

	// Health reports the store, broker and GitHub checks
	Health *observability.HealthRegistry
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	captureItemHandler *commands.CaptureItemHandler,
	addReplyHandler *commands.AddReplyHandler,
	setStatusHandler *commands.SetStatusHandler,
	markReadHandler *commands.MarkReadHandler,
	listItemsHandler *queries.ListItemsHandler,
	getItemHandler *queries.GetItemHandler,
	unreadCountHandler *queries.UnreadCountHandler,
) *App {
	return &App{
		CaptureItemHandler: captureItemHandler,
		AddReplyHandler:    addReplyHandler,
		SetStatusHandler:   setStatusHandler,
		MarkReadHandler:    markReadHandler,
		ListItemsHandler:   listItemsHandler,
		GetItemHandler:     getItemHandler,
		UnreadCountHandler: unreadCountHandler,
	}
}

// SetSyncService enables the sync, push and watch commands.
func (a *App) SetSyncService(service *inboxsync.Service) {
	a.SyncService = service
}

// SetEventBus updates the in-process event bus.
func (a *App) SetEventBus(bus *eventbus.InProcessEventBus) {
	a.EventBus = bus
}

// SetHealth updates the health registry.
func (a *App) SetHealth(health *observability.HealthRegistry) {
	a.Health = health
}

// RequireSync returns the sync service or ErrSyncNotConfigured.
func (a *App) RequireSync() (*inboxsync.Service, error) {
	if a.SyncService == nil {
		return nil, ErrSyncNotConfigured
	}
	return a.SyncService, nil
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

// RequireApp returns the application or an error when the inbox could not be opened.
func RequireApp() (*App, error) {
	if app == nil {
		return nil, errors.New("inbox is not available: check KLARITY_DATA_DIR and KLARITY_STORE")
	}
	return app, nil
}
