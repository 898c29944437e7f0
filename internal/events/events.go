// Package events publishes journal domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
)

// RecordCreatedEvent is published after a record has been stored.
// It carries no journal text.
type RecordCreatedEvent struct {
	RecordID    string    `json:"recordId"`
	UserID      string    `json:"userId"`
	Emotion     string    `json:"emotion"`
	CreatedDate time.Time `json:"createdDate"`
}

func NewRecordCreatedEvent(record *models.Record) RecordCreatedEvent {
	return RecordCreatedEvent{
		RecordID:    record.ID,
		UserID:      record.UserID,
		Emotion:     record.Emotion,
		CreatedDate: record.CreatedDate,
	}
}

// Publisher holds one broker connection and opens a channel per message.
type Publisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	queue string
}

// NewPublisher dials the broker at url. Events go to queue.
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("in internal/events/events.go/NewPublisher(): error while `amqp.Dial()` calling: %w", err)
	}

	return &Publisher{
		conn:  conn,
		queue: queue,
	}, nil
}

// PublishRecordCreated sends the event as a persistent message to the durable queue.
func (p *Publisher) PublishRecordCreated(ctx context.Context, record *models.Record) error {
	body, err := json.Marshal(NewRecordCreatedEvent(record))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("in internal/events/events.go/PublishRecordCreated(): error while `p.conn.Channel()` calling: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("in internal/events/events.go/PublishRecordCreated(): error while `ch.QueueDeclare()` calling: %w", err)
	}

	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// Close closes the broker connection.
func (p *Publisher) Close() error {
	return p.conn.Close()
}
