package event

import (
	"context"
	"sync"
)

// Listener receives lifecycle events synchronously
type Listener interface {
	OnEvent(ctx context.Context, event *Event)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(ctx context.Context, event *Event)

// OnEvent calls f
func (f ListenerFunc) OnEvent(ctx context.Context, event *Event) {
	f(ctx, event)
}

// Support keeps lifecycle listeners. Listener handles must be comparable.
type Support struct {
	listeners []Listener
	mux       sync.RWMutex
}

// Add registers listener once
func (s *Support) Add(listener Listener) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, candidate := range s.listeners {
		if candidate == listener {
			return
		}
	}
	s.listeners = append(s.listeners, listener)
}

// Remove unregisters listener
func (s *Support) Remove(listener Listener) {
	s.mux.Lock()
	defer s.mux.Unlock()
	result := make([]Listener, 0, len(s.listeners))
	for _, candidate := range s.listeners {
		if candidate != listener {
			result = append(result, candidate)
		}
	}
	s.listeners = result
}

// Listeners returns a snapshot of registered listeners
func (s *Support) Listeners() []Listener {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return append([]Listener(nil), s.listeners...)
}

// Fire notifies every listener in registration order
func (s *Support) Fire(ctx context.Context, event *Event) {
	for _, listener := range s.Listeners() {
		listener.OnEvent(ctx, event)
	}
}

// Reset removes all listeners
func (s *Support) Reset() {
	s.mux.Lock()
	s.listeners = nil
	s.mux.Unlock()
}
