package instance

// State represents the lifecycle state of a process instance
type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateError     State = "error"
	StateSuspended State = "suspended"
)

// IsTerminal returns true when no further transition is possible
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateAborted:
		return true
	}
	return false
}

// CanTransition returns true when moving from s to next is permitted
func (s State) CanTransition(next State) bool {
	if s == next {
		return false
	}
	switch s {
	case StatePending:
		return next == StateActive || next == StateAborted || next == StateError
	case StateActive:
		return next != StatePending
	case StateSuspended:
		return next == StateActive || next == StateAborted
	case StateError:
		return next == StateActive || next == StateAborted
	}
	return false
}
