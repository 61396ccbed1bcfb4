package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/procflow/internal/clock"
	"github.com/viant/procflow/service/event"
)

const stateActive = "active"

// Counters is a snapshot of instance counters
type Counters struct {
	Started   int       `json:"started"`
	Active    int       `json:"active"`
	Completed int       `json:"completed"`
	Aborted   int       `json:"aborted"`
	Failed    int       `json:"failed"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tracker aggregates Counters from lifecycle events. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	counters Counters
	live     map[string]struct{}
	onChange func(Counters)
}

var _ event.Listener = (*Tracker)(nil)

// OnEvent updates the counters. Instances count as active only when the start
// left them active, so an instance completed by its own start behavior is
// never reported as active.
func (t *Tracker) OnEvent(_ context.Context, e *event.Event) {
	if t == nil || e == nil {
		return
	}
	t.mu.Lock()
	changed := true
	switch e.Type {
	case event.AfterStarted:
		if e.Error != "" {
			changed = false
			break
		}
		t.counters.Started++
		if e.State == stateActive {
			t.live[e.InstanceID] = struct{}{}
		}
	case event.AfterCompleted:
		t.counters.Completed++
		delete(t.live, e.InstanceID)
	case event.Aborted:
		t.counters.Aborted++
		delete(t.live, e.InstanceID)
	case event.Failed:
		t.counters.Failed++
		delete(t.live, e.InstanceID)
	default:
		changed = false
	}
	if !changed {
		t.mu.Unlock()
		return
	}
	t.counters.Active = len(t.live)
	t.counters.UpdatedAt = clock.Now()
	snapshot := t.counters
	cb := t.onChange
	t.mu.Unlock()

	// outside the critical section so the callback may block
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters
func (t *Tracker) Snapshot() Counters {
	if t == nil {
		return Counters{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters
}

// OnChange registers a callback invoked after every change; nil disables it.
// Only one callback can be active.
func (t *Tracker) OnChange(cb func(Counters)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.onChange = cb
	t.mu.Unlock()
}

// New creates a tracker
func New() *Tracker {
	return &Tracker{live: map[string]struct{}{}}
}
