package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange inbox events go to.
const DefaultExchange = "klarity.inbox.events"

// ErrNotConfirmed is returned when the broker nacks a message.
var ErrNotConfirmed = errors.New("rabbitmq did not confirm the message")

// RabbitMQPublisher publishes persistent JSON messages to a durable topic
// exchange and waits for the broker to confirm each one.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *slog.Logger
}

// NewRabbitMQPublisher dials url, declares exchange (DefaultExchange when
// empty) and puts the channel in confirm mode.
func NewRabbitMQPublisher(url, exchange string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := setupChannel(conn, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("rabbitmq publisher connected", "exchange", exchange)
	return &RabbitMQPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

func setupChannel(conn *amqp.Connection, exchange string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	// durable, not auto-deleted, not internal
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	return ch, nil
}

// Publish sends payload under routingKey and blocks until the broker acks it.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := amqp.Publishing{
		MessageId:    uuid.NewString(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		AppId:        "klarity",
		Body:         payload,
	}
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	if !acked {
		return fmt.Errorf("publish %s: %w", routingKey, ErrNotConfirmed)
	}

	p.logger.Debug("event published to rabbitmq",
		"routing_key", routingKey,
		"message_id", msg.MessageId,
		"size", len(payload),
	)
	return nil
}

// Ping fails once the connection or channel has been closed by the broker.
func (p *RabbitMQPublisher) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.conn.IsClosed():
		return errors.New("rabbitmq connection closed")
	case p.ch.IsClosed():
		return errors.New("rabbitmq channel closed")
	}
	return nil
}

// Close closes the channel, then the connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if !p.ch.IsClosed() {
		errs = append(errs, p.ch.Close())
	}
	if !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
