package operation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/procflow/runtime/host"
	"github.com/viant/procflow/service/uow"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrNotInOperation is returned when End is called on a context without an open operation
var ErrNotInOperation = errors.New("operation: context is not inside an operation")

// frame is the per-call state of an operation. A closed frame stays reachable
// from contexts that outlive the operation, but can no longer be joined.
type frame struct {
	depth   int
	closed  bool
	queue   []host.Action
	unit    uow.UnitOfWork
	release func()
	once    sync.Once
	mux     sync.Mutex
}

func (f *frame) join() bool {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.closed || f.depth == 0 {
		return false
	}
	f.depth++
	return true
}

func (f *frame) open() bool {
	f.mux.Lock()
	defer f.mux.Unlock()
	return !f.closed && f.depth > 0
}

// leave steps out of a nested level. The outermost level is left by close.
func (f *frame) leave() (nested bool, closed bool) {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.closed {
		return false, true
	}
	if f.depth > 1 {
		f.depth--
		return true, false
	}
	return false, false
}

func (f *frame) close() {
	f.mux.Lock()
	f.depth = 0
	f.closed = true
	f.queue = nil
	f.mux.Unlock()
	f.once.Do(f.release)
}

func (f *frame) push(action host.Action) {
	f.mux.Lock()
	f.queue = append(f.queue, action)
	f.mux.Unlock()
}

func (f *frame) pop() (host.Action, bool) {
	f.mux.Lock()
	defer f.mux.Unlock()
	if len(f.queue) == 0 {
		return nil, false
	}
	action := f.queue[0]
	f.queue[0] = nil
	f.queue = f.queue[1:]
	return action, true
}

func (f *frame) discard() {
	f.mux.Lock()
	f.queue = nil
	f.mux.Unlock()
}

// Boundary is the default host engine: one exclusive section shared by all
// callers, with deferred actions drained before the unit of work commits.
type Boundary struct {
	sem     chan struct{}
	uow     *uow.Manager
	logger  *zap.Logger
	onBegin func()
}

var _ host.Engine = (*Boundary)(nil)

// Begin joins the open operation carried by ctx, or acquires the boundary.
// A context whose operation already ended acquires the boundary like any other.
func (b *Boundary) Begin(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if f := frameOf(ctx); f != nil && f.join() {
		return ctx, nil
	}
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx, ctx.Err()
	}
	if b.onBegin != nil {
		b.onBegin()
	}
	unit := b.uow.NewUnitOfWork()
	f := &frame{depth: 1, unit: unit}
	f.release = func() { <-b.sem }
	ctx = context.WithValue(ctx, frameKey, f)
	ctx = b.uow.Bind(ctx, unit)
	return ctx, nil
}

// End closes the operation. The outermost End drains queued actions in FIFO
// order, then commits the unit of work when err is nil or discards it otherwise.
func (b *Boundary) End(ctx context.Context, err error) error {
	f := frameOf(ctx)
	if f == nil {
		return ErrNotInOperation
	}
	nested, closed := f.leave()
	if closed {
		return ErrNotInOperation
	}
	if nested {
		return err
	}
	defer f.close()
	if err != nil {
		f.discard()
		if abortErr := f.unit.Abort(); abortErr != nil {
			b.logger.Warn("failed to discard unit of work", zap.Error(abortErr))
		}
		return err
	}
	var drainErr error
	for {
		action, ok := f.pop()
		if !ok {
			break
		}
		drainErr = multierr.Append(drainErr, b.run(ctx, action))
	}
	commitErr := f.unit.End(ctx)
	if commitErr != nil {
		b.logger.Error("unit of work commit failed", zap.Error(commitErr))
	}
	return multierr.Append(drainErr, commitErr)
}

func (b *Boundary) run(ctx context.Context, action host.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deferred action panic: %v", r)
		}
	}()
	if err = action(ctx); err != nil {
		b.logger.Warn("deferred action failed", zap.Error(err))
	}
	return err
}

// Queue appends action to the operation carried by ctx
func (b *Boundary) Queue(ctx context.Context, action host.Action) bool {
	f := frameOf(ctx)
	if f == nil || !f.open() {
		return false
	}
	f.push(action)
	return true
}

// InOperation returns true when ctx carries an open operation
func (b *Boundary) InOperation(ctx context.Context) bool {
	f := frameOf(ctx)
	return f != nil && f.open()
}

// Do runs fn inside an operation. A panic in fn discards the unit of work,
// releases the boundary and is re-raised.
func Do(ctx context.Context, engine host.Engine, fn func(ctx context.Context) error) (err error) {
	opCtx, err := engine.Begin(ctx)
	if err != nil {
		return err
	}
	completed := false
	defer func() {
		if completed {
			return
		}
		r := recover()
		_ = engine.End(opCtx, fmt.Errorf("operation panic: %v", r))
		panic(r)
	}()
	err = fn(opCtx)
	completed = true
	return engine.End(opCtx, err)
}

// New creates a boundary
func New(manager *uow.Manager, options ...Option) *Boundary {
	ret := &Boundary{sem: make(chan struct{}, 1), uow: manager, logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
