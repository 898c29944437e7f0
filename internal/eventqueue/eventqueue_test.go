package eventqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *recordingPublisher) PublishRecordCreated(ctx context.Context, record *models.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, record.ID)
	return p.err
}

func (p *recordingPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

func TestQueuePublishesInBackground(t *testing.T) {
	publisher := &recordingPublisher{}
	queue := New(publisher, 10, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Run(ctx)

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, queue.PublishRecordCreated(context.Background(), &models.Record{ID: id}))
	}

	assert.Eventually(t, func() bool {
		return len(publisher.ids()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"r1", "r2", "r3"}, publisher.ids())
}

func TestQueueDrainsOnStop(t *testing.T) {
	publisher := &recordingPublisher{}
	queue := New(publisher, 10, time.Hour)

	require.NoError(t, queue.PublishRecordCreated(context.Background(), &models.Record{ID: "r1"}))
	require.NoError(t, queue.PublishRecordCreated(context.Background(), &models.Record{ID: "r2"}))

	ctx, cancel := context.WithCancel(context.Background())
	queue.Run(ctx)
	cancel()
	queue.Wait()

	assert.ElementsMatch(t, []string{"r1", "r2"}, publisher.ids())
}

func TestQueueFull(t *testing.T) {
	queue := New(&recordingPublisher{}, 1, time.Hour)

	require.NoError(t, queue.PublishRecordCreated(context.Background(), &models.Record{ID: "r1"}))
	assert.ErrorIs(t, queue.PublishRecordCreated(context.Background(), &models.Record{ID: "r2"}), ErrQueueFull)
}

func TestQueueReportsErrors(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker is down")}
	queue := New(publisher, 10, 10*time.Millisecond)

	errs := make(chan error, 10)
	queue.ListenErrors(func(err error) {
		errs <- err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Run(ctx)

	require.NoError(t, queue.PublishRecordCreated(context.Background(), &models.Record{ID: "r1"}))

	select {
	case err := <-errs:
		assert.EqualError(t, err, "broker is down")
	case <-time.After(time.Second):
		t.Fatal("publish error was not reported")
	}
}
