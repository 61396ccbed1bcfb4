package memory

import (
	"context"
	"sync"

	"github.com/dogmatiq/linger"
	"github.com/viant/procflow/internal/clock"
	"github.com/viant/procflow/service/jobs"
	"github.com/viant/procflow/service/timer"
	"go.uber.org/zap"
)

// Backend arms jobs as goroutines sleeping until each firing
type Backend struct {
	timers map[jobs.Handle]*armed
	mux    sync.Mutex
	wg     sync.WaitGroup
	logger *zap.Logger
	closed bool
}

type armed struct {
	cancel context.CancelFunc
}

var _ jobs.Backend = (*Backend)(nil)

// Schedule arms expiration; fire is called once per firing until the expiration is exhausted
func (b *Backend) Schedule(ctx context.Context, id string, expiration *timer.ExpirationTime, fire jobs.FireFunc) (jobs.Handle, error) {
	handle := jobs.Handle(id)
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.closed {
		return "", context.Canceled
	}
	if previous, ok := b.timers[handle]; ok {
		previous.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	entry := &armed{cancel: cancel}
	b.timers[handle] = entry
	scheduledAt := clock.Now()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.release(handle, entry)
		for fired := 0; ; fired++ {
			next, ok := expiration.Next(scheduledAt, fired)
			if !ok {
				return
			}
			if err := linger.SleepUntil(ctx, next); err != nil {
				return
			}
			_, more := expiration.Next(scheduledAt, fired+1)
			firing := &jobs.Firing{Number: fired + 1, At: clock.Now(), Last: !more}
			if err := fire(ctx, firing); err != nil {
				b.logger.Warn("job firing failed", zap.String("job", id), zap.Int("firing", firing.Number), zap.Error(err))
			}
		}
	}()
	return handle, nil
}

func (b *Backend) release(handle jobs.Handle, entry *armed) {
	entry.cancel()
	b.mux.Lock()
	defer b.mux.Unlock()
	if current, ok := b.timers[handle]; ok && current == entry {
		delete(b.timers, handle)
	}
}

// Cancel disarms handle
func (b *Backend) Cancel(handle jobs.Handle) error {
	b.mux.Lock()
	entry, ok := b.timers[handle]
	delete(b.timers, handle)
	b.mux.Unlock()
	if !ok {
		return jobs.ErrHandleNotFound
	}
	entry.cancel()
	return nil
}

// Armed returns the number of armed jobs
func (b *Backend) Armed() int {
	b.mux.Lock()
	defer b.mux.Unlock()
	return len(b.timers)
}

// Close disarms every job and waits for timer goroutines to exit
func (b *Backend) Close() error {
	b.mux.Lock()
	b.closed = true
	for handle, entry := range b.timers {
		entry.cancel()
		delete(b.timers, handle)
	}
	b.mux.Unlock()
	b.wg.Wait()
	return nil
}

// New creates an in-memory backend
func New(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{timers: map[jobs.Handle]*armed{}, logger: logger}
}
