package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Bindings []string
	Prefetch int
	// Tag identifies this consumer in the broker's management UI.
	Tag string
}

type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	cfg  ConsumerConfig
}

// NewConsumer declares the exchange and a durable queue bound to cfg.Bindings.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	conn, ch, err := open(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		_ = closeAll(conn, ch)
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, rk := range cfg.Bindings {
		if err := ch.QueueBind(q.Name, rk, cfg.Exchange, false, nil); err != nil {
			_ = closeAll(conn, ch)
			return nil, fmt.Errorf("bind %s: %w", rk, err)
		}
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = closeAll(conn, ch)
		return nil, fmt.Errorf("set qos: %w", err)
	}
	cfg.Queue = q.Name
	return &Consumer{conn: conn, ch: ch, cfg: cfg}, nil
}

func (c *Consumer) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
}

func (c *Consumer) Close() error {
	return closeAll(c.conn, c.ch)
}
