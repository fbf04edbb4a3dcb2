package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"shoplist-go/pkg/logger"
)

// RabbitMQRelay publishes events to a fanout exchange. Each instance reads
// them back through its own exclusive, auto-deleted queue.
type RabbitMQRelay struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      logger.Logger
	mu       sync.Mutex
}

func NewRabbitMQRelay(url, exchange string, log logger.Logger) (*RabbitMQRelay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Info("realtime.relay: rabbitmq connected", "exchange", exchange)
	return &RabbitMQRelay{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

func (r *RabbitMQRelay) Publish(ctx context.Context, message []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channel.PublishWithContext(ctx,
		r.exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        message,
		},
	)
}

func (r *RabbitMQRelay) Subscribe(ctx context.Context, deliver func([]byte)) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	r.log.Info("realtime.relay: rabbitmq consuming", "queue", q.Name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errSubscriptionClosed
			}
			deliver(d.Body)
		}
	}
}

func (r *RabbitMQRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.channel.Close(); err != nil {
		r.log.Warn("realtime.relay: close channel", "error", err)
	}
	return r.conn.Close()
}
