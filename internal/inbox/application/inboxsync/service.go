package inboxsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/klarity/internal/inbox/infrastructure/github"
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/klarity/pkg/observability"
)

// RoutingKeyItemsReceived is published when a sync brought new items or replies.
const RoutingKeyItemsReceived = "inbox.items.received"

// RemoteStore is the remote side of a sync.
type RemoteStore interface {
	Puller
	Push(ctx context.Context, res github.Resource, items []domain.InboxItem) error
}

// Result is the outcome of one pull-and-merge.
type Result struct {
	// Changed is false when the remote had nothing new or does not exist yet.
	Changed  bool
	Merged   []domain.InboxItem
	NewCount int
	NewItems []domain.InboxItem
}

// ItemsReceivedEvent is the payload published under RoutingKeyItemsReceived.
type ItemsReceivedEvent struct {
	Resource   string    `json:"resource"`
	NewCount   int       `json:"newCount"`
	UnreadIDs  []string  `json:"unreadIds"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Service reconciles the local store with the remote inbox.
type Service struct {
	remote    RemoteStore
	resource  github.Resource
	store     domain.Store
	publisher eventbus.Publisher
	metrics   observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a sync service. publisher and metrics may be nil.
func NewService(
	remote RemoteStore,
	res github.Resource,
	store domain.Store,
	publisher eventbus.Publisher,
	metrics observability.Metrics,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = eventbus.NewNoopPublisher(logger)
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Service{
		remote:    remote,
		resource:  res,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With("resource", res.Key()),
		now:       time.Now,
	}
}

// Resource returns the remote resource this service syncs.
func (s *Service) Resource() github.Resource {
	return s.resource
}

// SyncOnce pulls the remote inbox and merges it into the local store.
func (s *Service) SyncOnce(ctx context.Context) (result *Result, err error) {
	timer := observability.StartTimer("inbox.sync").WithMetrics(s.metrics).WithLogger(s.logger)
	defer func() { timer.Stop(err) }()

	local, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local inbox: %w", err)
	}

	pulled, err := s.remote.Pull(ctx, s.resource)
	if err != nil {
		s.metrics.Counter(observability.MetricSyncPulls, 1, observability.T("status", "error"))
		return nil, err
	}
	if !pulled.Changed() {
		status := github.PullUnchanged
		if pulled != nil {
			status = pulled.Status
		}
		s.metrics.Counter(observability.MetricSyncPulls, 1, observability.T("status", status.String()))
		return &Result{Merged: local, NewItems: []domain.InboxItem{}}, nil
	}
	s.metrics.Counter(observability.MetricSyncPulls, 1, observability.T("status", "changed"))

	merged := domain.Merge(local, pulled.Items)
	saved, err := s.Apply(ctx, merged.Merged, merged.NewCount)
	if err != nil {
		return nil, err
	}
	return &Result{
		Changed:  true,
		Merged:   saved,
		NewCount: merged.NewCount,
		NewItems: merged.NewItems,
	}, nil
}

// Apply adopts a merged collection: it is reconciled with whatever the store holds now,
// saved when that differs from the stored collection, and announced when newCount > 0.
// It returns the collection as stored.
func (s *Service) Apply(ctx context.Context, merged []domain.InboxItem, newCount int) ([]domain.InboxItem, error) {
	var final []domain.InboxItem
	err := domain.Update(ctx, s.store, func(stored []domain.InboxItem) ([]domain.InboxItem, bool, error) {
		// Local edits made since merged was computed must survive.
		final = domain.Merge(stored, merged).Merged
		return final, newCount > 0 || !sameItems(stored, final), nil
	})
	if err != nil {
		s.metrics.Counter(observability.MetricSyncApplyErrors, 1)
		return nil, err
	}
	s.metrics.Gauge(observability.MetricInboxItems, float64(len(final)))

	if newCount > 0 {
		s.metrics.Counter(observability.MetricSyncNewItems, int64(newCount))
		s.logger.Info("new inbox activity", "new", newCount, "items", len(final))
		s.publishReceived(ctx, final, newCount)
	}
	return final, nil
}

// Push reconciles with the remote and writes the local inbox back.
// A version conflict triggers one re-pull and one more push; a second conflict is returned.
func (s *Service) Push(ctx context.Context) (err error) {
	timer := observability.StartTimer("inbox.push").WithMetrics(s.metrics).WithLogger(s.logger)
	defer func() { timer.Stop(err) }()

	synced, err := s.SyncOnce(ctx)
	if err != nil {
		return fmt.Errorf("sync before push: %w", err)
	}

	err = s.remote.Push(ctx, s.resource, synced.Merged)
	if errors.Is(err, github.ErrVersionConflict) {
		s.metrics.Counter(observability.MetricSyncPushes, 1, observability.T("result", "conflict"))
		s.logger.Warn("push conflicted, re-pulling once", "error", err)

		synced, err = s.SyncOnce(ctx)
		if err != nil {
			return fmt.Errorf("re-pull after conflict: %w", err)
		}
		err = s.remote.Push(ctx, s.resource, synced.Merged)
	}

	switch {
	case err == nil:
		s.metrics.Counter(observability.MetricSyncPushes, 1, observability.T("result", "ok"))
		s.logger.Info("inbox pushed", "items", len(synced.Merged))
		return nil
	case errors.Is(err, github.ErrVersionConflict):
		s.metrics.Counter(observability.MetricSyncPushes, 1, observability.T("result", "conflict"))
	default:
		s.metrics.Counter(observability.MetricSyncPushes, 1, observability.T("result", "failed"))
	}
	s.logger.Error("inbox push failed", "error", err)
	return err
}

// NewPoller returns a poller seeded with the stored inbox whose merges are applied to the store.
func (s *Service) NewPoller(ctx context.Context, config PollerConfig) (*Poller, error) {
	local, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local inbox: %w", err)
	}

	var poller *Poller
	poller = NewPoller(s.remote, s.resource, config, func(merged []domain.InboxItem, newCount int) {
		saved, err := s.Apply(ctx, merged, newCount)
		if err != nil {
			s.logger.Error("failed to apply merged inbox", "error", err)
			return
		}
		poller.SetLocal(saved)
	}, s.logger)
	poller.SetLocal(local)
	return poller, nil
}

// Watch polls until ctx is cancelled.
func (s *Service) Watch(ctx context.Context, interval time.Duration) error {
	poller, err := s.NewPoller(ctx, PollerConfig{Interval: interval})
	if err != nil {
		return err
	}
	stop := poller.Start(ctx)
	defer stop()

	<-ctx.Done()
	return ctx.Err()
}

func (s *Service) publishReceived(ctx context.Context, items []domain.InboxItem, newCount int) {
	unread := make([]string, 0)
	for _, item := range items {
		if !item.Read {
			unread = append(unread, item.ID)
		}
	}
	payload, err := json.Marshal(ItemsReceivedEvent{
		Resource:   s.resource.Key(),
		NewCount:   newCount,
		UnreadIDs:  unread,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to encode inbox event", "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, RoutingKeyItemsReceived, payload); err != nil {
		s.metrics.Counter(observability.MetricEventsFailed, 1)
		s.logger.WarnContext(ctx, "failed to publish inbox event", "error", err)
		return
	}
	s.metrics.Counter(observability.MetricEventsPublished, 1)
}

func sameItems(a, b []domain.InboxItem) bool {
	if len(a) != len(b) {
		return false
	}
	left, err := json.Marshal(domain.NewInboxFile(a, time.Time{}).Items)
	if err != nil {
		return false
	}
	right, err := json.Marshal(domain.NewInboxFile(b, time.Time{}).Items)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}
