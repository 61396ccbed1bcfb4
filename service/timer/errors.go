package timer

import "errors"

var (
	// ErrUnsupportedTimerKind is returned for timer kinds other than duration, cycle and date
	ErrUnsupportedTimerKind = errors.New("timer: unsupported timer kind")

	// ErrInvalidTimerExpression is returned when a delay, period or date cannot be parsed
	ErrInvalidTimerExpression = errors.New("timer: invalid timer expression")
)
