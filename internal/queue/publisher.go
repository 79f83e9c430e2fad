// Package queue publishes booking lifecycle events to RabbitMQ so the rest
// of the platform (notifications, reporting) can react to room changes.
// Publish failures are logged, never propagated: a lost event must not fail
// the booking that caused it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/eventstay/booking-api/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

const exchange = "bookings"

// BookingEvent is the wire shape for booking.created and booking.moved.
type BookingEvent struct {
	BookingID  int64     `json:"booking_id"`
	UserID     int64     `json:"user_id"`
	RoomID     int64     `json:"room_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher holds an open AMQP connection and channel bound to the bookings
// topic exchange. It implements service.Notifier.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials the broker and declares the exchange (idempotent,
// durable so events survive broker restarts).
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

// BookingCreated publishes a booking.created event.
func (p *Publisher) BookingCreated(ctx context.Context, booking model.Booking) {
	p.publish(ctx, "booking.created", booking)
}

// BookingMoved publishes a booking.moved event.
func (p *Publisher) BookingMoved(ctx context.Context, booking model.Booking) {
	p.publish(ctx, "booking.moved", booking)
}

func (p *Publisher) publish(ctx context.Context, key string, booking model.Booking) {
	body, err := json.Marshal(BookingEvent{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		RoomID:     booking.RoomID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("queue: marshal %s event: %v", key, err)
		return
	}

	err = p.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		log.Printf("queue: publish %s failed: %v", key, err)
	}
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
