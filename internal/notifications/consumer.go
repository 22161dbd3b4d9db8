package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"sale-products/internal/products"
	"sale-products/internal/products/messaging"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "notifications-service"

var errUnknownEvent = errors.New("unknown event type")

type Consumer struct {
	channel   *amqp.Channel
	queue     string
	logger    *slog.Logger
	processed *prometheus.CounterVec
}

// NewProcessedCounter counts consumed events by event type and outcome
// ("ok" or "rejected").
func NewProcessedCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_events_processed_total",
		Help: "Product events consumed by the notifications service.",
	}, []string{"event_type", "outcome"})
}

func NewConsumer(conn *amqp.Connection, queue string, prefetch int, processed *prometheus.CounterVec, logger *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := messaging.DeclareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set prefetch %d: %w", prefetch, err)
	}

	return &Consumer{
		channel:   ch,
		queue:     queue,
		logger:    logger,
		processed: processed,
	}, nil
}

func (c *Consumer) Listen(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			if err := c.Handle(msg.Body); err != nil {
				c.logger.Error("handle message failed", "message_id", msg.MessageId, "error", err)
				// not requeued: malformed and unknown events never succeed
				_ = msg.Nack(false, false)
				continue
			}

			_ = msg.Ack(false)
		}
	}
}

// Handle decodes a product event and logs the notification for it.
func (c *Consumer) Handle(body []byte) error {
	var event products.ProductEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.count("", "rejected")
		return fmt.Errorf("unmarshal event: %w", err)
	}

	var text string
	switch event.EventType {
	case products.EventCreated:
		text = "new product listed"
	case products.EventUpdated:
		text = "product listing changed"
	case products.EventDeleted:
		text = "product listing removed"
	default:
		c.count("unknown", "rejected")
		return fmt.Errorf("%w: %q", errUnknownEvent, event.EventType)
	}
	c.count(event.EventType, "ok")

	c.logger.Info(text,
		"event_type", event.EventType,
		"product_id", event.ProductID,
		"name", event.Name,
		"timestamp", event.Timestamp,
	)

	return nil
}

func (c *Consumer) count(eventType, outcome string) {
	if c.processed == nil {
		return
	}
	c.processed.WithLabelValues(eventType, outcome).Inc()
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
