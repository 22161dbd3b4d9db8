package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"sale-products/internal/products"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	contentTypeJSON = "application/json"
	appID           = "sale-products"

	// HeaderEventType mirrors ProductEvent.EventType so consumers can route
	// without decoding the body.
	HeaderEventType = "event_type"
)

type RabbitPublisher struct {
	channel *amqp.Channel
	queue   string
}

func NewRabbitPublisher(conn *amqp.Connection, queue string) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := DeclareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &RabbitPublisher{
		channel: ch,
		queue:   queue,
	}, nil
}

// DeclareQueue declares the durable product events queue. Publisher and
// consumer must agree on its arguments.
func DeclareQueue(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", queue, err)
	}
	return nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event products.ProductEvent) error {
	msg, err := NewMessage(event)
	if err != nil {
		return err
	}

	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish %s to %q: %w", event.EventType, p.queue, err)
	}

	return nil
}

func NewMessage(event products.ProductEvent) (amqp.Publishing, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        appID,
		Type:         event.EventType,
		Timestamp:    event.Timestamp,
		Headers:      amqp.Table{HeaderEventType: event.EventType},
		Body:         payload,
	}, nil
}

func (p *RabbitPublisher) Close() error {
	return p.channel.Close()
}
