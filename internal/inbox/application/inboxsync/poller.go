// Package inboxsync drives pulls from the shared inbox file and reconciles them with local state.
package inboxsync

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/klarity/internal/inbox/infrastructure/github"
	"github.com/felixgeelhaar/klarity/pkg/observability"
)

// DefaultPollInterval is the delay between the end of one cycle and the start of the next.
const DefaultPollInterval = 30 * time.Second

// Puller fetches the remote inbox.
type Puller interface {
	Pull(ctx context.Context, res github.Resource) (*github.PullResult, error)
}

// Callback receives the reconciled collection after a pull brought new data.
type Callback func(merged []domain.InboxItem, newCount int)

// PollerConfig configures a Poller.
type PollerConfig struct {
	Interval time.Duration
	// After schedules the next cycle. Defaults to time.After.
	After func(time.Duration) <-chan time.Time
}

// DefaultPollerConfig returns the default configuration.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{Interval: DefaultPollInterval}
}

// Stats summarizes what a poller has observed so far.
type Stats struct {
	Cycles              int
	Changes             int
	Failures            int
	ConsecutiveFailures int
	LastError           error
	LastSuccess         time.Time
}

// Poller periodically pulls the remote inbox and merges it into a local snapshot.
type Poller struct {
	remote     Puller
	resource   github.Resource
	config     PollerConfig
	onNewItems Callback
	logger     *slog.Logger

	mu    sync.Mutex
	local []domain.InboxItem
	stats Stats

	started  atomic.Bool
	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewPoller creates a poller. The local snapshot starts empty; see SetLocal.
func NewPoller(remote Puller, res github.Resource, config PollerConfig, onNewItems Callback, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.After == nil {
		config.After = time.After
	}
	if onNewItems == nil {
		onNewItems = func([]domain.InboxItem, int) {}
	}
	return &Poller{
		remote:     remote,
		resource:   res,
		config:     config,
		onNewItems: onNewItems,
		logger:     logger.With("resource", res.Key()),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetLocal replaces the snapshot the next pull is merged into.
func (p *Poller) SetLocal(items []domain.InboxItem) {
	snapshot := cloneItems(items)
	p.mu.Lock()
	p.local = snapshot
	p.mu.Unlock()
}

// Local returns a copy of the current snapshot.
func (p *Poller) Local() []domain.InboxItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneItems(p.local)
}

// Stats returns a copy of the poller statistics.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// IsRunning returns true while the poll loop is alive.
func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

// Done is closed once the poll loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Start runs one cycle right away and then one cycle per interval until stopped
// or ctx is cancelled. The returned stop function is idempotent. A cycle that
// completes after stop does not invoke the callback. A poller can be started once.
func (p *Poller) Start(ctx context.Context) (stop func()) {
	if !p.started.CompareAndSwap(false, true) {
		p.logger.Warn("poller already started")
		return p.stop
	}

	p.running.Store(true)
	p.logger.Info("inbox poller started", "interval", p.config.Interval)

	go p.run(ctx)
	return p.stop
}

func (p *Poller) stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

func (p *Poller) isStopped() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.running.Store(false)

	for {
		p.runCycle(ctx)

		// Checked before scheduling so a stop during the pull schedules nothing.
		if p.isStopped() {
			p.logger.Info("inbox poller stopped (stop signal)")
			return
		}
		select {
		case <-ctx.Done():
			p.logger.Info("inbox poller stopped (context cancelled)")
			return
		case <-p.stopCh:
			p.logger.Info("inbox poller stopped (stop signal)")
			return
		case <-p.config.After(p.config.Interval):
		}
	}
}

// runCycle pulls once. Failures are recorded and logged, never propagated.
func (p *Poller) runCycle(ctx context.Context) {
	ctx = observability.WithCorrelationID(ctx, "")
	result, err := p.remote.Pull(ctx, p.resource)
	if err == nil && result == nil {
		result = &github.PullResult{Status: github.PullUnchanged}
	}

	p.mu.Lock()
	p.stats.Cycles++
	if err != nil {
		p.stats.Failures++
		p.stats.ConsecutiveFailures++
		p.stats.LastError = err
		failures := p.stats.ConsecutiveFailures
		p.mu.Unlock()
		p.logger.WarnContext(ctx, "inbox pull failed", "error", err, "consecutive_failures", failures)
		return
	}
	p.stats.ConsecutiveFailures = 0
	p.stats.LastError = nil
	p.stats.LastSuccess = time.Now()
	if !result.Changed() {
		p.mu.Unlock()
		p.logger.DebugContext(ctx, "inbox pull brought nothing new", "status", result.Status.String())
		return
	}

	merged := domain.Merge(p.local, result.Items)
	p.local = merged.Merged
	p.stats.Changes++
	p.mu.Unlock()

	if p.isStopped() {
		p.logger.DebugContext(ctx, "discarding pull that completed after stop")
		return
	}

	p.logger.DebugContext(ctx, "inbox merged", "items", len(merged.Merged), "new", merged.NewCount)
	p.onNewItems(cloneItems(merged.Merged), merged.NewCount)
}

func cloneItems(items []domain.InboxItem) []domain.InboxItem {
	out := make([]domain.InboxItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
