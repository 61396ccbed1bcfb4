package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dogmatiq/linger"
	"github.com/viant/procflow/internal/idgen"
	"github.com/viant/procflow/service/messaging"
)

// ErrSettled is returned when a message is acked or nacked twice
var ErrSettled = errors.New("memory: message already settled")

// Config for the in-memory queue
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns the default queue configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message is an in-memory queue message
type Message[T any] struct {
	id      string
	payload T
	attempt int
	queue   *Queue[T]
	settled bool
	lastErr error
	mux     sync.Mutex
}

func (m *Message[T]) ID() string   { return m.id }
func (m *Message[T]) T() *T        { return &m.payload }
func (m *Message[T]) Attempt() int { return m.attempt }

// Err returns the last failure reported by Nack
func (m *Message[T]) Err() error {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.lastErr
}

func (m *Message[T]) settle(err error) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.settled {
		return ErrSettled
	}
	m.settled = true
	m.lastErr = err
	return nil
}

// Ack settles the message
func (m *Message[T]) Ack() error {
	return m.settle(nil)
}

// Nack settles the message and redelivers it after RetryDelay until MaxRetries is exceeded,
// then moves it to the dead letter list when enabled.
func (m *Message[T]) Nack(err error) error {
	if settleErr := m.settle(err); settleErr != nil {
		return settleErr
	}
	q := m.queue
	if m.attempt <= q.config.MaxRetries {
		retry := &Message[T]{id: m.id, payload: m.payload, attempt: m.attempt + 1, queue: q}
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			if linger.Sleep(q.ctx, q.config.RetryDelay) != nil {
				return
			}
			select {
			case q.messages <- retry:
			case <-q.ctx.Done():
			}
		}()
		return nil
	}
	if q.config.DeadLetter {
		q.dlqMux.Lock()
		q.dlq = append(q.dlq, m)
		q.dlqMux.Unlock()
	}
	return nil
}

// Queue is an in-memory messaging.Queue with retry and dead letter support
type Queue[T any] struct {
	messages chan *Message[T]
	dlq      []*Message[T]
	dlqMux   sync.Mutex
	config   Config
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewQueue creates an in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish enqueues a copy of t
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if q.ctx.Err() != nil {
		return messaging.ErrClosed
	}
	msg := &Message[T]{id: idgen.NewULID(), payload: *t, attempt: 1, queue: q}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return messaging.ErrClosed
	}
}

// Consume blocks until a message is available, ctx is done or the queue is closed
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.ctx.Done():
		return nil, messaging.ErrClosed
	}
}

// Close stops the queue and pending redeliveries
func (q *Queue[T]) Close() error {
	q.cancel()
	q.wg.Wait()
	return nil
}

// Size returns the number of buffered messages
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DeadLetters returns messages that exhausted their retries
func (q *Queue[T]) DeadLetters() []*Message[T] {
	q.dlqMux.Lock()
	defer q.dlqMux.Unlock()
	return append([]*Message[T](nil), q.dlq...)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
