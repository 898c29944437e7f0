// Package eventqueue decouples record submission from event publishing:
// records are enqueued without blocking and a background worker hands them
// to the publisher in batches.
package eventqueue

import (
	"context"
	"errors"
	"time"

	"github.com/patric-chuzhbe/moodjournal/internal/logger"
	"github.com/patric-chuzhbe/moodjournal/internal/models"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room left.
var ErrQueueFull = errors.New("event queue is full")

type publisher interface {
	PublishRecordCreated(ctx context.Context, record *models.Record) error
}

type Queue struct {
	publisher      publisher
	queue          chan *models.Record
	errorChannel   chan error
	flushInterval  time.Duration
	publishTimeout time.Duration
	done           chan struct{}
}

func New(
	publisher publisher,
	channelCapacity int,
	flushInterval time.Duration,
) *Queue {
	return &Queue{
		publisher:      publisher,
		queue:          make(chan *models.Record, channelCapacity),
		errorChannel:   make(chan error, channelCapacity),
		flushInterval:  flushInterval,
		publishTimeout: 5 * time.Second,
		done:           make(chan struct{}),
	}
}

// PublishRecordCreated enqueues the record and returns immediately.
func (q *Queue) PublishRecordCreated(ctx context.Context, record *models.Record) error {
	copied := *record
	select {
	case q.queue <- &copied:
		return nil
	default:
		return ErrQueueFull
	}
}

// ListenErrors calls callback for every publish failure until the queue stops.
func (q *Queue) ListenErrors(callback func(error)) {
	go func() {
		for err := range q.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the worker. It drains what is already buffered when ctx is done.
func (q *Queue) Run(ctx context.Context) {
	go func() {
		defer close(q.done)
		defer close(q.errorChannel)

		ticker := time.NewTicker(q.flushInterval)
		defer ticker.Stop()

		var pending []*models.Record

		for {
			select {
			case record := <-q.queue:
				pending = append(pending, record)
			case <-ticker.C:
				pending = q.flush(pending)
			case <-ctx.Done():
				q.flush(q.drain(pending))
				return
			}
		}
	}()
}

// Wait blocks until the worker started by Run has returned.
func (q *Queue) Wait() {
	<-q.done
}

func (q *Queue) drain(pending []*models.Record) []*models.Record {
	for {
		select {
		case record := <-q.queue:
			pending = append(pending, record)
		default:
			return pending
		}
	}
}

func (q *Queue) flush(pending []*models.Record) []*models.Record {
	if len(pending) == 0 {
		return pending
	}

	for _, record := range pending {
		ctx, cancel := context.WithTimeout(context.Background(), q.publishTimeout)
		err := q.publisher.PublishRecordCreated(ctx, record)
		cancel()
		if err != nil {
			select {
			case q.errorChannel <- err:
			default:
			}
		}
	}
	logger.Log.Debugf("published %d record.created events", len(pending))

	return pending[:0]
}
