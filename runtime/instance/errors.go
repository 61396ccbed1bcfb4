package instance

import "errors"

var (
	// ErrInvalidTransition is returned when a state change is not permitted
	ErrInvalidTransition = errors.New("instance: invalid state transition")

	// ErrUnsupportedKind is returned when no factory is registered for a definition kind
	ErrUnsupportedKind = errors.New("instance: unsupported definition kind")
)
