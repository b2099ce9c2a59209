package eventbus

import (
	"context"
	"encoding/json"
	"time"
)

// EventConsumer handles specific event types.
type EventConsumer interface {
	// EventTypes returns the routing keys this consumer handles, e.g. ["inbox.items.received"].
	EventTypes() []string

	// Handle processes the event.
	Handle(ctx context.Context, msg *Message) error
}

// Message is an event as delivered to consumers.
type Message struct {
	RoutingKey string          `json:"routing_key"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// ConsumerFunc adapts a function to EventConsumer for a fixed set of routing keys.
func ConsumerFunc(fn func(ctx context.Context, msg *Message) error, eventTypes ...string) EventConsumer {
	return funcConsumer{fn: fn, eventTypes: eventTypes}
}

type funcConsumer struct {
	fn         func(ctx context.Context, msg *Message) error
	eventTypes []string
}

func (c funcConsumer) EventTypes() []string {
	return c.eventTypes
}

func (c funcConsumer) Handle(ctx context.Context, msg *Message) error {
	return c.fn(ctx, msg)
}
