package inboxsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/klarity/internal/inbox/infrastructure/github"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newItem(id string, minutes int) domain.InboxItem {
	return domain.InboxItem{
		ID:        id,
		Text:      "item " + id,
		Type:      domain.TypeNote,
		Status:    domain.StatusPending,
		CreatedAt: baseTime.Add(time.Duration(minutes) * time.Minute),
		Read:      true,
		Author:    domain.AuthorUser,
		Replies:   []domain.Reply{},
	}
}

func ids(items []domain.InboxItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

type pullResponse struct {
	result *github.PullResult
	err    error
}

func changed(items ...domain.InboxItem) pullResponse {
	return pullResponse{result: &github.PullResult{Status: github.PullChanged, Items: items}}
}

func unchanged() pullResponse {
	return pullResponse{result: &github.PullResult{Status: github.PullUnchanged}}
}

func failed(err error) pullResponse {
	return pullResponse{err: err}
}

// stubRemote replays queued pull responses; once exhausted it reports unchanged.
type stubRemote struct {
	mu        sync.Mutex
	pulls     []pullResponse
	pullCalls int
	pushErrs  []error
	pushed    [][]domain.InboxItem

	// When set, Pull signals inFlight and waits for release.
	inFlight chan struct{}
	release  chan struct{}
}

func (s *stubRemote) Pull(ctx context.Context, res github.Resource) (*github.PullResult, error) {
	if s.inFlight != nil {
		s.inFlight <- struct{}{}
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pullCalls++
	if len(s.pulls) == 0 {
		return &github.PullResult{Status: github.PullUnchanged}, nil
	}
	next := s.pulls[0]
	s.pulls = s.pulls[1:]
	return next.result, next.err
}

func (s *stubRemote) Push(ctx context.Context, res github.Resource, items []domain.InboxItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed = append(s.pushed, items)
	if len(s.pushErrs) == 0 {
		return nil
	}
	err := s.pushErrs[0]
	s.pushErrs = s.pushErrs[1:]
	return err
}

func (s *stubRemote) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pullCalls
}

// memStore is an in-memory domain.Store.
type memStore struct {
	mu      sync.Mutex
	items   []domain.InboxItem
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(ctx context.Context) ([]domain.InboxItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return cloneItems(m.items), nil
}

func (m *memStore) Save(ctx context.Context, items []domain.InboxItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.items = cloneItems(items)
	return nil
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// fakeScheduler hands the poll loop a channel the test fires by hand.
type fakeScheduler struct {
	requests chan time.Duration
	tick     chan time.Time
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		requests: make(chan time.Duration, 16),
		tick:     make(chan time.Time),
	}
}

func (s *fakeScheduler) After(d time.Duration) <-chan time.Time {
	s.requests <- d
	return s.tick
}

// awaitScheduled waits until the loop has finished a cycle and asked for the next tick.
func (s *fakeScheduler) awaitScheduled(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-s.requests:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("poller never scheduled the next cycle")
		return 0
	}
}

func (s *fakeScheduler) fire(t *testing.T) {
	t.Helper()
	select {
	case s.tick <- baseTime:
	case <-time.After(2 * time.Second):
		t.Fatal("poller is not waiting for a tick")
	}
}

type callbackCall struct {
	merged   []domain.InboxItem
	newCount int
}

func recordingCallback() (Callback, chan callbackCall) {
	calls := make(chan callbackCall, 16)
	return func(merged []domain.InboxItem, newCount int) {
		calls <- callbackCall{merged: merged, newCount: newCount}
	}, calls
}

func awaitDone(t *testing.T, p *Poller) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}
