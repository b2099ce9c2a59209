package inboxsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/klarity/internal/inbox/infrastructure/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoller(remote Puller, sched *fakeScheduler, cb Callback) *Poller {
	return NewPoller(remote, github.InboxResource("octo"), PollerConfig{
		Interval: 45 * time.Second,
		After:    sched.After,
	}, cb, nil)
}

func TestPoller_FirstCycleRunsImmediately(t *testing.T) {
	remote := &stubRemote{pulls: []pullResponse{changed(newItem("a", 0))}}
	sched := newFakeScheduler()
	cb, calls := recordingCallback()
	p := newTestPoller(remote, sched, cb)

	stop := p.Start(context.Background())
	defer stop()

	assert.Equal(t, 45*time.Second, sched.awaitScheduled(t))
	require.Len(t, calls, 1)
	call := <-calls
	assert.Equal(t, []string{"a"}, ids(call.merged))
	assert.Equal(t, 1, call.newCount)
	assert.True(t, p.IsRunning())
}

func TestPoller_MergesIntoLocalSnapshot(t *testing.T) {
	localA := newItem("A", 0)
	localA.Replies = []domain.Reply{{ID: "r1", Author: domain.AuthorUser, Text: "first", CreatedAt: baseTime.Add(time.Minute)}}

	remoteA := localA.Clone()
	remoteA.Read = false
	remoteA.Replies = append(remoteA.Replies, domain.Reply{ID: "r2", Author: domain.AuthorAgent, Text: "second", CreatedAt: baseTime.Add(2 * time.Minute)})
	remoteB := newItem("B", 5)
	remoteB.Author = domain.AuthorAgent

	remote := &stubRemote{pulls: []pullResponse{changed(remoteA, remoteB), changed(remoteA, remoteB)}}
	sched := newFakeScheduler()
	cb, calls := recordingCallback()
	p := newTestPoller(remote, sched, cb)
	p.SetLocal([]domain.InboxItem{localA})

	stop := p.Start(context.Background())
	defer stop()
	sched.awaitScheduled(t)

	call := <-calls
	assert.Equal(t, 2, call.newCount)
	assert.Equal(t, []string{"B", "A"}, ids(call.merged))
	assert.Equal(t, []string{"B", "A"}, ids(p.Local()))

	sched.fire(t)
	sched.awaitScheduled(t)

	call = <-calls
	assert.Zero(t, call.newCount, "second identical pull merges into the updated snapshot")
}

func TestPoller_SilentOnNoChangeAndFailure(t *testing.T) {
	boom := errors.New("connection refused")
	remote := &stubRemote{pulls: []pullResponse{
		failed(boom),
		unchanged(),
		{result: &github.PullResult{Status: github.PullNotFound}},
		failed(boom),
		failed(boom),
	}}
	sched := newFakeScheduler()
	cb, calls := recordingCallback()
	p := newTestPoller(remote, sched, cb)

	stop := p.Start(context.Background())
	defer stop()

	sched.awaitScheduled(t)
	for i := 0; i < 4; i++ {
		sched.fire(t)
		sched.awaitScheduled(t)
	}

	assert.Empty(t, calls)
	stats := p.Stats()
	assert.Equal(t, 5, stats.Cycles)
	assert.Equal(t, 3, stats.Failures)
	assert.Equal(t, 2, stats.ConsecutiveFailures)
	assert.ErrorIs(t, stats.LastError, boom)
	assert.False(t, stats.LastSuccess.IsZero())
	assert.True(t, p.IsRunning(), "failures must not end the loop")
}

func TestPoller_StopIsIdempotent(t *testing.T) {
	remote := &stubRemote{}
	sched := newFakeScheduler()
	p := newTestPoller(remote, sched, nil)

	stop := p.Start(context.Background())
	sched.awaitScheduled(t)

	stop()
	stop()
	awaitDone(t, p)

	assert.False(t, p.IsRunning())
	assert.Equal(t, 1, remote.calls())
	assert.NotPanics(t, stop)
}

func TestPoller_StopDuringPullSuppressesCallback(t *testing.T) {
	remote := &stubRemote{
		pulls:    []pullResponse{changed(newItem("late", 0))},
		inFlight: make(chan struct{}),
		release:  make(chan struct{}),
	}
	sched := newFakeScheduler()
	cb, calls := recordingCallback()
	p := newTestPoller(remote, sched, cb)

	stop := p.Start(context.Background())
	<-remote.inFlight
	stop()
	close(remote.release)
	awaitDone(t, p)

	assert.Empty(t, calls, "no callback after stop")
	assert.Empty(t, sched.requests, "no tick scheduled after stop")
}

func TestPoller_ContextCancellationStops(t *testing.T) {
	sched := newFakeScheduler()
	p := newTestPoller(&stubRemote{}, sched, nil)
	ctx, cancel := context.WithCancel(context.Background())

	stop := p.Start(ctx)
	defer stop()
	sched.awaitScheduled(t)
	cancel()

	awaitDone(t, p)
	assert.False(t, p.IsRunning())
}

func TestPoller_StartTwice(t *testing.T) {
	remote := &stubRemote{}
	sched := newFakeScheduler()
	p := newTestPoller(remote, sched, nil)

	stop := p.Start(context.Background())
	sched.awaitScheduled(t)
	again := p.Start(context.Background())

	again()
	awaitDone(t, p)
	stop()
	assert.Equal(t, 1, remote.calls(), "second start must not launch another loop")
}

func TestNewPoller_Defaults(t *testing.T) {
	p := NewPoller(&stubRemote{}, github.InboxResource("octo"), PollerConfig{}, nil, nil)

	assert.Equal(t, DefaultPollInterval, p.config.Interval)
	assert.NotNil(t, p.config.After)
	assert.Empty(t, p.Local())
}
