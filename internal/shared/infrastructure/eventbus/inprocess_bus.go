package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

type subscription struct {
	id       uint64
	consumer EventConsumer
}

// InProcessEventBus delivers events synchronously to consumers in the same
// process. Consumer failures are logged and never fail the publish.
// Consumers run outside the bus lock, so they may subscribe or unsubscribe.
type InProcessEventBus struct {
	mu     sync.RWMutex
	nextID uint64
	byKey  map[string][]subscription
	logger *slog.Logger
}

func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{byKey: map[string][]subscription{}, logger: logger}
}

// RegisterConsumer subscribes consumer to its EventTypes. The returned
// func removes it again.
func (b *InProcessEventBus) RegisterConsumer(consumer EventConsumer) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	keys := consumer.EventTypes()
	for _, key := range keys {
		b.byKey[key] = append(b.byKey[key], subscription{id: id, consumer: consumer})
	}
	b.mu.Unlock()

	b.logger.Debug("consumer registered", "routing_keys", keys)

	var once sync.Once
	return func() { once.Do(func() { b.remove(id, keys) }) }
}

// Subscribe registers fn for the given routing keys.
func (b *InProcessEventBus) Subscribe(fn func(ctx context.Context, msg *Message) error, routingKeys ...string) (unsubscribe func()) {
	return b.RegisterConsumer(ConsumerFunc(fn, routingKeys...))
}

func (b *InProcessEventBus) remove(id uint64, keys []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		subs := slices.DeleteFunc(b.byKey[key], func(s subscription) bool { return s.id == id })
		if len(subs) == 0 {
			delete(b.byKey, key)
			continue
		}
		b.byKey[key] = subs
	}
}

// Publish hands a copy of payload to every consumer of routingKey before
// returning. All consumers run even if one fails.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.RLock()
	subs := slices.Clone(b.byKey[routingKey])
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.logger.Debug("no consumers for event", "routing_key", routingKey)
		return nil
	}

	msg := &Message{
		RoutingKey: routingKey,
		Payload:    slices.Clone(payload),
		ReceivedAt: time.Now(),
	}
	start := time.Now()
	var errs []error
	for _, sub := range subs {
		if err := sub.consumer.Handle(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		b.logger.Error("event consumer failed",
			"routing_key", routingKey,
			"failed", len(errs),
			"consumers", len(subs),
			"error", err,
		)
		return nil
	}
	b.logger.Debug("event dispatched",
		"routing_key", routingKey,
		"consumers", len(subs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// RoutingKeys lists the keys with at least one consumer, sorted.
func (b *InProcessEventBus) RoutingKeys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.byKey))
	for key := range b.byKey {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// ConsumerCount counts subscriptions per routing key.
func (b *InProcessEventBus) ConsumerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, subs := range b.byKey {
		n += len(subs)
	}
	return n
}

func (b *InProcessEventBus) Close() error { return nil }
