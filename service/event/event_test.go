package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflow/service/messaging/memory"
)

type recorder struct {
	name  string
	trace *[]string
}

func (r *recorder) OnEvent(_ context.Context, event *Event) {
	*r.trace = append(*r.trace, r.name+":"+string(event.Type))
}

func TestSupport(t *testing.T) {
	var trace []string
	first := &recorder{name: "first", trace: &trace}
	second := &recorder{name: "second", trace: &trace}
	support := &Support{}
	support.Add(first)
	support.Add(second)
	support.Add(first)

	support.Fire(context.Background(), NewEvent(BeforeStarted, "1", "order"))
	assert.Equal(t, []string{"first:beforeStarted", "second:beforeStarted"}, trace)

	support.Remove(first)
	assert.Len(t, support.Listeners(), 1)
	support.Reset()
	assert.Empty(t, support.Listeners())
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(Failed, "1", "order").WithError(errors.New("boom"))
	assert.Len(t, event.ID, 26)
	assert.Equal(t, "boom", event.Error)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestQueuePublisher(t *testing.T) {
	publisher := NewQueuePublisher(memory.NewQueue[Event](memory.DefaultConfig()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *Event, 2)
	done := publisher.Subscribe(ctx, func(event *Event) { received <- event })
	require.NoError(t, publisher.Publish(ctx, NewEvent(AfterStarted, "1", "order")))

	select {
	case event := <-received:
		assert.Equal(t, AfterStarted, event.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	require.NoError(t, publisher.Close())
	assert.NoError(t, <-done)
}
