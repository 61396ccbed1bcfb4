package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned by queues after Close
var ErrClosed = errors.New("messaging: queue closed")

// Queue is a message queue of T payloads
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue, blocking until one is available
	Consume(ctx context.Context) (Message[T], error)

	// Close stops accepting messages and releases consumers
	Close() error
}

// Message is a message retrieved from a queue
type Message[T any] interface {
	// ID returns the message id
	ID() string

	// T returns the payload of this message
	T() *T

	// Attempt returns the delivery attempt, starting at 1
	Attempt() int

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack reports failed processing; the queue may redeliver the message
	Nack(err error) error
}
