package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends appointment events.  Callers treat failures as
// best-effort: a booking has already succeeded when the event is sent.
type Publisher interface {
	PublishAppointmentBooked(ctx context.Context, ev AppointmentBookedEvent) error
}

// NopPublisher drops every event.  It is used when the queue is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishAppointmentBooked(context.Context, AppointmentBookedEvent) error {
	return nil
}

// AMQPPublisher publishes to a durable queue on the default exchange.  It
// dials per message; bookings are rare enough that a pooled connection is
// not worth its reconnect handling.
type AMQPPublisher struct {
	url   string
	queue string
	log   *zap.Logger
}

// NewAMQPPublisher returns a publisher for queue at url.
func NewAMQPPublisher(url, queue string, log *zap.Logger) *AMQPPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPPublisher{url: url, queue: queue, log: log}
}

// PublishAppointmentBooked marshals ev and publishes it as a persistent
// message.  Errors are logged and returned.
func (p *AMQPPublisher) PublishAppointmentBooked(ctx context.Context, ev AppointmentBookedEvent) error {
	err := p.publish(ctx, ev)
	if err != nil {
		p.log.Warn("appointment event not published",
			zap.String("queue", p.queue),
			zap.String("availability_id", ev.AvailabilityID),
			zap.Error(err))
	}
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, ev AppointmentBookedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch, p.queue); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return q, fmt.Errorf("queue declare: %w", err)
	}
	return q, nil
}
