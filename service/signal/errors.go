package signal

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrListenerPanic marks a recovered listener panic
var ErrListenerPanic = errors.New("signal: listener panic")

// DeliveryError aggregates failures of listeners invoked for one signal
type DeliveryError struct {
	Topic    string
	Failures error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("signal %s: %d listener(s) failed: %v", e.Topic, len(multierr.Errors(e.Failures)), e.Failures)
}

// Unwrap exposes the individual failures to errors.Is/As
func (e *DeliveryError) Unwrap() []error {
	return multierr.Errors(e.Failures)
}

// Errors returns the individual listener failures
func (e *DeliveryError) Errors() []error {
	return multierr.Errors(e.Failures)
}
