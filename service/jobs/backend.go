package jobs

import (
	"context"
	"time"

	"github.com/viant/procflow/service/timer"
)

// Handle identifies a job armed in a backend
type Handle string

// Firing describes one firing of an armed job
type Firing struct {
	Number int
	At     time.Time
	Last   bool
}

// FireFunc is invoked by a backend each time a job fires
type FireFunc func(ctx context.Context, firing *Firing) error

// Backend arms expirations and invokes fire when they elapse
type Backend interface {
	Schedule(ctx context.Context, id string, expiration *timer.ExpirationTime, fire FireFunc) (Handle, error)
	Cancel(handle Handle) error
}
