package host

import "context"

// Action is a deferred action executed at the end of the outermost operation
type Action func(ctx context.Context) error

// Engine is the host evaluation engine contract. It owns the exclusive
// operation boundary around every state mutating runtime call.
type Engine interface {
	// Begin opens an operation, or joins the one already carried by ctx.
	Begin(ctx context.Context) (context.Context, error)

	// End closes the operation opened by the matching Begin. The outermost End
	// drains queued actions and commits (err == nil) or discards the unit of work.
	End(ctx context.Context, err error) error

	// Queue appends an action to the current operation; it returns false outside an operation.
	Queue(ctx context.Context, action Action) bool

	// InOperation returns true when ctx carries an open operation
	InOperation(ctx context.Context) bool
}
