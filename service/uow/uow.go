package uow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

var (
	// ErrCompleted is returned when a unit of work is ended or aborted twice
	ErrCompleted = errors.New("uow: unit of work already completed")
)

// WorkItem is a deferred side effect
type WorkItem struct {
	Name    string
	Data    interface{}
	Perform func(ctx context.Context) error
	// Abort is invoked when the unit of work is discarded
	Abort func()
}

// UnitOfWork collects work items and executes them at commit
type UnitOfWork interface {
	Intercept(item *WorkItem) error
	End(ctx context.Context) error
	Abort() error
	Pending() int
}

// CommitError aggregates work item failures
type CommitError struct {
	Failures []*ItemFailure
}

// ItemFailure reports a failed work item
type ItemFailure struct {
	Item *WorkItem
	Err  error
}

func (e *ItemFailure) Error() string {
	return fmt.Sprintf("work item %s: %v", e.Item.Name, e.Err)
}

func (e *ItemFailure) Unwrap() error {
	return e.Err
}

func (e *CommitError) Error() string {
	var err error
	for _, failure := range e.Failures {
		err = multierr.Append(err, failure)
	}
	return fmt.Sprintf("uow: commit failed: %v", err)
}

// Unwrap exposes the individual failures to errors.Is/As
func (e *CommitError) Unwrap() []error {
	result := make([]error, 0, len(e.Failures))
	for _, failure := range e.Failures {
		result = append(result, failure)
	}
	return result
}

type unitOfWork struct {
	items     []*WorkItem
	completed bool
	mux       sync.Mutex
}

func (u *unitOfWork) Intercept(item *WorkItem) error {
	u.mux.Lock()
	defer u.mux.Unlock()
	if u.completed {
		return ErrCompleted
	}
	u.items = append(u.items, item)
	return nil
}

func (u *unitOfWork) Pending() int {
	u.mux.Lock()
	defer u.mux.Unlock()
	return len(u.items)
}

func (u *unitOfWork) take() ([]*WorkItem, error) {
	u.mux.Lock()
	defer u.mux.Unlock()
	if u.completed {
		return nil, ErrCompleted
	}
	u.completed = true
	items := u.items
	u.items = nil
	return items, nil
}

// End executes every item in order; failures do not stop later items.
func (u *unitOfWork) End(ctx context.Context) error {
	items, err := u.take()
	if err != nil {
		return err
	}
	var failures []*ItemFailure
	for _, item := range items {
		if err := perform(ctx, item); err != nil {
			failures = append(failures, &ItemFailure{Item: item, Err: err})
		}
	}
	if len(failures) > 0 {
		return &CommitError{Failures: failures}
	}
	return nil
}

func perform(ctx context.Context, item *WorkItem) (err error) {
	if item.Perform == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return item.Perform(ctx)
}

// Abort drops all items without executing them
func (u *unitOfWork) Abort() error {
	items, err := u.take()
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Abort != nil {
			item.Abort()
		}
	}
	return nil
}

// passThrough executes items immediately; it serves callers outside any operation
type passThrough struct{}

func (passThrough) Intercept(item *WorkItem) error {
	if err := perform(context.Background(), item); err != nil {
		return &CommitError{Failures: []*ItemFailure{{Item: item, Err: err}}}
	}
	return nil
}

func (passThrough) End(context.Context) error { return nil }
func (passThrough) Abort() error              { return nil }
func (passThrough) Pending() int              { return 0 }

// New creates an empty unit of work
func New() UnitOfWork {
	return &unitOfWork{}
}
