package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflow/service/messaging"
)

type payload struct {
	JobID string
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	defer queue.Close()
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &payload{JobID: "1"}))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", message.T().JobID)
	assert.Equal(t, 1, message.Attempt())
	assert.Len(t, message.ID(), 26)
	assert.NoError(t, message.Ack())
	assert.ErrorIs(t, message.Ack(), ErrSettled)
	assert.ErrorIs(t, message.Nack(errors.New("late")), ErrSettled)
}

func TestQueue_Retry(t *testing.T) {
	testCases := []struct {
		description string
		maxRetries  int
		deadLetter  bool
		expectDLQ   int
	}{
		{description: "retries then dead letter", maxRetries: 2, deadLetter: true, expectDLQ: 1},
		{description: "retries then drop", maxRetries: 1, deadLetter: false, expectDLQ: 0},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			queue := NewQueue[payload](Config{MaxRetries: testCase.maxRetries, RetryDelay: time.Millisecond, DeadLetter: testCase.deadLetter})
			defer queue.Close()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			require.NoError(t, queue.Publish(ctx, &payload{JobID: "x"}))

			for attempt := 1; attempt <= testCase.maxRetries+1; attempt++ {
				message, err := queue.Consume(ctx)
				require.NoError(t, err)
				assert.Equal(t, attempt, message.Attempt())
				require.NoError(t, message.Nack(errors.New("failed")))
			}
			assert.Len(t, queue.DeadLetters(), testCase.expectDLQ)
			short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancelShort()
			_, err := queue.Consume(short)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestQueue_Close(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	require.NoError(t, queue.Close())
	_, err := queue.Consume(context.Background())
	assert.ErrorIs(t, err, messaging.ErrClosed)
	assert.ErrorIs(t, queue.Publish(context.Background(), &payload{}), messaging.ErrClosed)
}
