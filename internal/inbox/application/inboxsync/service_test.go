package inboxsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/klarity/internal/inbox/infrastructure/github"
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/klarity/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	remote  *stubRemote
	store   *memStore
	bus     *eventbus.InProcessEventBus
	events  []ItemsReceivedEvent
	metrics *observability.InMemoryMetrics
	svc     *Service
}

func newServiceFixture(t *testing.T, local []domain.InboxItem, pulls ...pullResponse) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		remote:  &stubRemote{pulls: pulls},
		store:   &memStore{items: local},
		bus:     eventbus.NewInProcessEventBus(nil),
		metrics: observability.NewInMemoryMetrics(),
	}
	f.bus.Subscribe(func(ctx context.Context, msg *eventbus.Message) error {
		var event ItemsReceivedEvent
		require.NoError(t, msg.Decode(&event))
		f.events = append(f.events, event)
		return nil
	}, RoutingKeyItemsReceived)
	f.svc = NewService(f.remote, github.InboxResource("octo"), f.store, f.bus, f.metrics, nil)
	return f
}

func conflictErr() error {
	return &github.ConflictError{Resource: "octo/.taskboard/inbox.json", SHA: "stale"}
}

func TestService_SyncOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("unchanged remote touches nothing", func(t *testing.T) {
		f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)}, unchanged())

		result, err := f.svc.SyncOnce(ctx)

		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, []string{"a"}, ids(result.Merged))
		assert.Zero(t, f.store.saveCount())
		assert.Empty(t, f.events)
		assert.Equal(t, int64(1), f.metrics.GetCounter("inbox.sync.pulls", observability.T("status", "unchanged")))
	})

	t.Run("new items are saved and announced", func(t *testing.T) {
		remoteItem := newItem("mobile", 5)
		f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)}, changed(newItem("a", 0), remoteItem))

		result, err := f.svc.SyncOnce(ctx)

		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, 1, result.NewCount)
		assert.Equal(t, []string{"mobile"}, ids(result.NewItems))
		assert.Equal(t, []string{"mobile", "a"}, ids(f.store.items))
		assert.Equal(t, 1, f.store.saveCount())

		require.Len(t, f.events, 1)
		assert.Equal(t, 1, f.events[0].NewCount)
		assert.Equal(t, []string{"mobile"}, f.events[0].UnreadIDs)
		assert.Equal(t, "octo/.taskboard/inbox.json", f.events[0].Resource)
		assert.Equal(t, int64(1), f.metrics.GetCounter("inbox.sync.new_items"))
	})

	t.Run("identical remote is not rewritten", func(t *testing.T) {
		local := []domain.InboxItem{newItem("b", 1), newItem("a", 0)}
		f := newServiceFixture(t, local, changed(local...))

		result, err := f.svc.SyncOnce(ctx)

		require.NoError(t, err)
		assert.Zero(t, result.NewCount)
		assert.Zero(t, f.store.saveCount())
		assert.Empty(t, f.events)
	})

	t.Run("status change is saved without an event", func(t *testing.T) {
		remoteA := newItem("a", 0)
		remoteA.Status = domain.StatusDone
		f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)}, changed(remoteA))

		result, err := f.svc.SyncOnce(ctx)

		require.NoError(t, err)
		assert.Zero(t, result.NewCount)
		assert.Equal(t, 1, f.store.saveCount())
		assert.Equal(t, domain.StatusDone, f.store.items[0].Status)
		assert.Empty(t, f.events)
	})

	t.Run("pull failure leaves local state alone", func(t *testing.T) {
		boom := errors.New("offline")
		f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)}, failed(boom))

		_, err := f.svc.SyncOnce(ctx)

		assert.ErrorIs(t, err, boom)
		assert.Zero(t, f.store.saveCount())
		assert.Equal(t, int64(1), f.metrics.GetCounter("inbox.sync.pulls", observability.T("status", "error")))
	})

	t.Run("load failure is reported", func(t *testing.T) {
		f := newServiceFixture(t, nil)
		f.store.loadErr = errors.New("disk gone")

		_, err := f.svc.SyncOnce(ctx)

		assert.ErrorContains(t, err, "load local inbox")
		assert.Zero(t, f.remote.calls())
	})
}

func TestService_ApplyKeepsConcurrentLocalEdits(t *testing.T) {
	f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)})

	// A local reply lands after the merged snapshot was computed.
	edited := newItem("a", 0)
	edited.Replies = []domain.Reply{{ID: "mine", Author: domain.AuthorUser, Text: "ok", CreatedAt: baseTime.Add(time.Minute)}}
	f.store.items = []domain.InboxItem{edited}

	stale := []domain.InboxItem{newItem("a", 0), newItem("remote", 3)}
	saved, err := f.svc.Apply(context.Background(), stale, 1)

	require.NoError(t, err)
	assert.Equal(t, []string{"remote", "a"}, ids(saved))
	a := saved[domain.FindItem(saved, "a")]
	assert.True(t, a.HasReply("mine"))
}

func TestService_ApplySaveFailure(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.store.saveErr = errors.New("read-only")

	_, err := f.svc.Apply(context.Background(), []domain.InboxItem{newItem("a", 0)}, 1)

	assert.ErrorContains(t, err, "save local inbox")
	assert.Empty(t, f.events)
}

func TestService_Push(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes the reconciled inbox", func(t *testing.T) {
		f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)}, changed(newItem("remote", 1)))

		err := f.svc.Push(ctx)

		require.NoError(t, err)
		require.Len(t, f.remote.pushed, 1)
		assert.Equal(t, []string{"remote", "a"}, ids(f.remote.pushed[0]))
		assert.Equal(t, int64(1), f.metrics.GetCounter("inbox.sync.pushes", observability.T("result", "ok")))
	})

	t.Run("conflict re-pulls and retries once", func(t *testing.T) {
		f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)},
			unchanged(),
			changed(newItem("a", 0), newItem("raced", 2)),
		)
		f.remote.pushErrs = []error{conflictErr(), nil}

		err := f.svc.Push(ctx)

		require.NoError(t, err)
		require.Len(t, f.remote.pushed, 2)
		assert.Equal(t, []string{"a"}, ids(f.remote.pushed[0]))
		assert.Equal(t, []string{"raced", "a"}, ids(f.remote.pushed[1]))
		assert.Equal(t, []string{"raced", "a"}, ids(f.store.items), "merged remote state is persisted before the retry")
		assert.Equal(t, int64(1), f.metrics.GetCounter("inbox.sync.pushes", observability.T("result", "conflict")))
	})

	t.Run("second conflict is returned", func(t *testing.T) {
		f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)})
		f.remote.pushErrs = []error{conflictErr(), conflictErr(), nil}

		err := f.svc.Push(ctx)

		assert.ErrorIs(t, err, github.ErrVersionConflict)
		assert.Len(t, f.remote.pushed, 2, "exactly one retry")
	})

	t.Run("other failures are not retried", func(t *testing.T) {
		f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)})
		f.remote.pushErrs = []error{&github.PushError{Resource: "octo", Err: errors.New("forbidden")}}

		err := f.svc.Push(ctx)

		assert.ErrorIs(t, err, github.ErrPushFailed)
		assert.Len(t, f.remote.pushed, 1)
		assert.Equal(t, int64(1), f.metrics.GetCounter("inbox.sync.pushes", observability.T("result", "failed")))
	})

	t.Run("unreachable remote fails before pushing", func(t *testing.T) {
		f := newServiceFixture(t, nil, failed(github.ErrRemoteUnavailable))

		err := f.svc.Push(ctx)

		assert.ErrorIs(t, err, github.ErrRemoteUnavailable)
		assert.Empty(t, f.remote.pushed)
	})
}

func TestService_NewPollerAppliesMerges(t *testing.T) {
	f := newServiceFixture(t, []domain.InboxItem{newItem("a", 0)}, changed(newItem("a", 0), newItem("mobile", 4)))
	sched := newFakeScheduler()

	p, err := f.svc.NewPoller(context.Background(), PollerConfig{Interval: time.Minute, After: sched.After})
	require.NoError(t, err)
	stop := p.Start(context.Background())
	defer stop()
	sched.awaitScheduled(t)

	assert.Equal(t, []string{"mobile", "a"}, ids(f.store.items))
	assert.Equal(t, 1, f.store.saveCount())
	require.Len(t, f.events, 1)
	assert.Equal(t, []string{"mobile", "a"}, ids(p.Local()))
}

func TestService_WatchReturnsOnCancel(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- f.svc.Watch(ctx, time.Hour) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return")
	}
}
