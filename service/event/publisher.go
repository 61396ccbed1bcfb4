package event

import (
	"context"
	"errors"

	"github.com/viant/procflow/service/messaging"
)

// Publisher delivers lifecycle events downstream
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// QueuePublisher publishes events on a messaging queue
type QueuePublisher struct {
	queue messaging.Queue[Event]
}

// NewQueuePublisher creates a queue backed publisher
func NewQueuePublisher(queue messaging.Queue[Event]) *QueuePublisher {
	return &QueuePublisher{queue: queue}
}

func (p *QueuePublisher) Publish(ctx context.Context, event *Event) error {
	return p.queue.Publish(ctx, event)
}

// Consume returns the next event, acknowledging it
func (p *QueuePublisher) Consume(ctx context.Context) (*Event, error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}

// Subscribe calls handler for each queued event until ctx is done or the queue is closed
func (p *QueuePublisher) Subscribe(ctx context.Context, handler func(*Event)) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		for {
			event, err := p.Consume(ctx)
			if err != nil {
				if errors.Is(err, messaging.ErrClosed) || ctx.Err() != nil {
					return
				}
				done <- err
				return
			}
			handler(event)
		}
	}()
	return done
}

func (p *QueuePublisher) Close() error {
	return p.queue.Close()
}
