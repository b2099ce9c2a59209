package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/felixgeelhaar/klarity/internal/inbox/application/commands"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/inboxsync"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/queries"
	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/klarity/internal/inbox/infrastructure/github"
	"github.com/felixgeelhaar/klarity/internal/inbox/persistence"
	"github.com/felixgeelhaar/klarity/internal/inbox/services"
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/klarity/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/klarity/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/klarity/pkg/config"
	"github.com/felixgeelhaar/klarity/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	// Database, nil for the JSON store
	DBConn database.Connection

	// Store is the local inbox, serialized for read-modify-write cycles.
	Store *persistence.LockedStore

	// EventBus delivers inbox events inside the process; EventPublisher also
	// forwards them to the configured broker.
	EventBus       *eventbus.InProcessEventBus
	EventPublisher eventbus.Publisher

	// Remote sync, nil when no GitHub owner or token is configured
	Resource     github.Resource
	GitHubClient *github.Client
	SyncService  *inboxsync.Service

	// Inbox Command Handlers
	CaptureItemHandler *commands.CaptureItemHandler
	AddReplyHandler    *commands.AddReplyHandler
	SetStatusHandler   *commands.SetStatusHandler
	MarkReadHandler    *commands.MarkReadHandler

	// Inbox Query Handlers
	ListItemsHandler   *queries.ListItemsHandler
	GetItemHandler     *queries.GetItemHandler
	UnreadCountHandler *queries.UnreadCountHandler
}

// NewContainer wires the store, event publisher, GitHub client and handlers from cfg.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	store, err := c.openStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = persistence.NewLockedStore(store)

	c.EventBus = eventbus.NewInProcessEventBus(logger)
	publisher, err := c.openPublisher(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.EventPublisher = publisher

	if cfg.GitHubConfigured() {
		c.Resource = github.Resource{Owner: cfg.GitHubOwner, Repo: cfg.GitHubRepo, Path: cfg.InboxPath}
		c.GitHubClient = github.NewStaticTokenClientWithBaseURL(cfg.GitHubToken, logger, cfg.GitHubAPIURL).
			WithTimeout(cfg.RequestTimeout).
			WithBreaker(github.BreakerConfig{
				Enabled:          cfg.BreakerEnabled,
				FailureThreshold: uint32(max(cfg.BreakerFailures, 1)),
				MaxRequests:      uint32(max(cfg.BreakerHalfOpens, 1)),
				Interval:         cfg.BreakerInterval,
				Timeout:          cfg.BreakerTimeout,
			})
		c.SyncService = inboxsync.NewService(c.GitHubClient, c.Resource, c.Store, c.EventPublisher, c.Metrics, logger)
		c.Health.Register("github", breakerChecker(c.GitHubClient))
	} else {
		logger.Debug("github sync not configured", "owner_set", cfg.GitHubOwner != "", "token_set", cfg.GitHubToken != "")
	}

	classifier := services.NewClassifier()
	c.CaptureItemHandler = commands.NewCaptureItemHandler(c.Store, classifier, logger)
	c.AddReplyHandler = commands.NewAddReplyHandler(c.Store, logger)
	c.SetStatusHandler = commands.NewSetStatusHandler(c.Store)
	c.MarkReadHandler = commands.NewMarkReadHandler(c.Store)

	c.ListItemsHandler = queries.NewListItemsHandler(c.Store)
	c.GetItemHandler = queries.NewGetItemHandler(c.Store)
	c.UnreadCountHandler = queries.NewUnreadCountHandler(c.Store)

	return c, nil
}

// RequireSync returns the sync service or an error explaining how to configure it.
func (c *Container) RequireSync() (*inboxsync.Service, error) {
	if c.SyncService == nil {
		return nil, fmt.Errorf("github sync is not configured: set KLARITY_GITHUB_TOKEN and KLARITY_GITHUB_OWNER")
	}
	return c.SyncService, nil
}

func (c *Container) openStore(ctx context.Context) (domain.Store, error) {
	cfg := c.Config
	markdownPath := filepath.Join(cfg.DataDir, persistence.DefaultMarkdownFile)

	var dbCfg database.Config
	switch cfg.Store {
	case config.StoreSQLite:
		if err := database.EnsureDirectory(cfg.SQLitePath); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbCfg = database.Config{Driver: database.DriverSQLite, SQLitePath: cfg.SQLitePath}
	case config.StorePostgres:
		dbCfg = database.Config{Driver: database.DriverPostgres, URL: cfg.DatabaseURL}
	default:
		c.Logger.Debug("using json store", "dir", cfg.DataDir)
		return persistence.NewJSONStore(cfg.DataDir, c.Logger), nil
	}

	conn, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Store, err)
	}
	c.DBConn = conn

	if err := migrations.Run(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	c.Health.Register("store", observability.PingChecker(cfg.Store, conn.Ping, observability.HealthStatusUnhealthy))
	c.Logger.Info("connected to database", "driver", conn.Driver().String())

	return persistence.NewSQLStore(conn, markdownPath, c.Logger), nil
}

// pinger is implemented by broker publishers.
type pinger interface {
	Ping(ctx context.Context) error
}

func (c *Container) openPublisher(ctx context.Context) (eventbus.Publisher, error) {
	cfg := c.Config

	var broker eventbus.Publisher
	var err error
	switch cfg.Events {
	case config.EventsNone:
		return eventbus.NewNoopPublisher(c.Logger), nil
	case config.EventsRabbitMQ:
		broker, err = eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, c.Logger)
	case config.EventsRedis:
		broker, err = eventbus.NewRedisPublisher(ctx, cfg.RedisURL, c.Logger)
	default:
		return c.EventBus, nil
	}

	if err != nil {
		// Fall back to local delivery in development
		if cfg.IsDevelopment() {
			c.Logger.Warn("event broker not available, publishing in-process only", "events", cfg.Events, "error", err)
			return c.EventBus, nil
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Events, err)
	}
	if p, ok := broker.(pinger); ok {
		c.Health.Register("events", observability.PingChecker(cfg.Events, p.Ping, observability.HealthStatusDegraded))
	}
	return eventbus.NewFanOutPublisher(broker, c.EventBus), nil
}

func breakerChecker(client *github.Client) observability.HealthChecker {
	return func(ctx context.Context) observability.HealthCheckResult {
		state := client.BreakerState()
		details := map[string]any{"breaker": state}
		if state == "open" {
			return observability.HealthCheckResult{
				Status:  observability.HealthStatusDegraded,
				Message: "github circuit open",
				Details: details,
			}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy, Details: details}
	}
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Debug("database connection closed", "driver", c.DBConn.Driver().String())
		}
	}
}
