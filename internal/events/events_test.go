package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
)

func TestNewRecordCreatedEventOmitsText(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	event := NewRecordCreatedEvent(&models.Record{
		ID:          "r1",
		UserID:      "u1",
		CreatedDate: created,
		Emotion:     "calm",
		Content:     "private text",
		Response:    "reply",
	})

	payload, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recordId":"r1","userId":"u1","emotion":"calm","createdDate":"2024-05-01T09:30:00Z"}`, string(payload))
}

func TestPublishRecordCreated(t *testing.T) {
	url := os.Getenv("JOURNAL_TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("JOURNAL_TEST_RABBITMQ_URL is not set")
	}

	queue := "record.created.test"
	publisher, err := NewPublisher(url, queue)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, publisher.Close())
	}()

	record := &models.Record{ID: "r1", UserID: "u1", Emotion: "calm", CreatedDate: time.Now().UTC()}
	require.NoError(t, publisher.PublishRecordCreated(context.Background(), record))

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	msg, ok, err := ch.Get(queue, true)
	require.NoError(t, err)
	require.True(t, ok)

	var event RecordCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &event))
	assert.Equal(t, "r1", event.RecordID)

	_, err = ch.QueueDelete(queue, false, false, false)
	require.NoError(t, err)
}
