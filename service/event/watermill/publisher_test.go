package watermill

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflow/service/event"
)

func TestPublisher_Publish(t *testing.T) {
	testCases := []struct {
		description string
		options     []Option
		topic       string
	}{
		{description: "single topic", topic: "process-events"},
		{description: "topic per definition", options: []Option{WithTopicPerDefinition("process.")}, topic: "process.order"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
			defer pubSub.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			messages, err := pubSub.Subscribe(ctx, testCase.topic)
			require.NoError(t, err)

			publisher := New(pubSub, "process-events", testCase.options...)
			sent := event.NewEvent(event.AfterStarted, "1", "order")
			sent.Trigger = "timer"
			require.NoError(t, publisher.Publish(ctx, sent))

			var msg *message.Message
			select {
			case msg = <-messages:
			case <-ctx.Done():
				t.Fatal("message not received")
			}
			msg.Ack()
			assert.Equal(t, sent.ID, msg.UUID)
			assert.Equal(t, "afterStarted", msg.Metadata.Get(MetadataType))
			assert.Equal(t, "order", msg.Metadata.Get(MetadataDefinitionID))

			received, err := Decode(msg)
			require.NoError(t, err)
			assert.Equal(t, sent.InstanceID, received.InstanceID)
			assert.Equal(t, sent.Trigger, received.Trigger)
			assert.True(t, sent.CreatedAt.Equal(received.CreatedAt))
		})
	}
}
