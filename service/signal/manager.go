package signal

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Manager routes signals to listeners registered per topic, either process
// wide or scoped to one instance.
type Manager struct {
	topics    map[string][]Listener
	instances map[string]map[string][]Listener
	mux       sync.RWMutex
	logger    *zap.Logger
	observer  func(topic string, delivered int, err error)
}

// AddEventListener registers listener for topic; registering the same handle twice is a no-op.
func (m *Manager) AddEventListener(topic string, listener Listener) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.topics[topic] = appendUnique(m.topics[topic], listener)
}

// RemoveEventListener removes listener from topic; removing an absent handle is a no-op.
func (m *Manager) RemoveEventListener(topic string, listener Listener) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if listeners := removeHandle(m.topics[topic], listener); len(listeners) > 0 {
		m.topics[topic] = listeners
	} else {
		delete(m.topics, topic)
	}
}

// Listeners returns a snapshot of listeners registered for topic
func (m *Manager) Listeners(topic string) []Listener {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return append([]Listener(nil), m.topics[topic]...)
}

// AddInstanceListener registers a listener scoped to instanceID
func (m *Manager) AddInstanceListener(instanceID, topic string, listener Listener) {
	m.mux.Lock()
	defer m.mux.Unlock()
	byTopic, ok := m.instances[instanceID]
	if !ok {
		byTopic = map[string][]Listener{}
		m.instances[instanceID] = byTopic
	}
	byTopic[topic] = appendUnique(byTopic[topic], listener)
}

// RemoveInstanceListener removes a scoped listener
func (m *Manager) RemoveInstanceListener(instanceID, topic string, listener Listener) {
	m.mux.Lock()
	defer m.mux.Unlock()
	byTopic, ok := m.instances[instanceID]
	if !ok {
		return
	}
	if listeners := removeHandle(byTopic[topic], listener); len(listeners) > 0 {
		byTopic[topic] = listeners
	} else {
		delete(byTopic, topic)
	}
	if len(byTopic) == 0 {
		delete(m.instances, instanceID)
	}
}

// RemoveInstanceListeners drops every listener scoped to instanceID
func (m *Manager) RemoveInstanceListeners(instanceID string) {
	m.mux.Lock()
	delete(m.instances, instanceID)
	m.mux.Unlock()
}

// SignalEvent delivers payload to every listener of topic in registration order.
// All listeners run; failures are returned as a *DeliveryError.
func (m *Manager) SignalEvent(ctx context.Context, topic string, payload interface{}) error {
	return m.deliver(ctx, topic, payload, m.Listeners(topic))
}

// SignalInstanceEvent delivers payload only to listeners scoped to instanceID
func (m *Manager) SignalInstanceEvent(ctx context.Context, instanceID, topic string, payload interface{}) error {
	m.mux.RLock()
	listeners := append([]Listener(nil), m.instances[instanceID][topic]...)
	m.mux.RUnlock()
	return m.deliver(ctx, topic, payload, listeners)
}

func (m *Manager) deliver(ctx context.Context, topic string, payload interface{}, listeners []Listener) error {
	var failures error
	for _, listener := range listeners {
		if err := invoke(ctx, listener, topic, payload); err != nil {
			m.logger.Warn("signal listener failed", zap.String("topic", topic), zap.Error(err))
			failures = multierr.Append(failures, err)
		}
	}
	var err error
	if failures != nil {
		err = &DeliveryError{Topic: topic, Failures: failures}
	}
	if m.observer != nil {
		m.observer(topic, len(listeners), err)
	}
	return err
}

func invoke(ctx context.Context, listener Listener, topic string, payload interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrListenerPanic, r)
		}
	}()
	return listener.SignalEvent(ctx, topic, payload)
}

func appendUnique(listeners []Listener, listener Listener) []Listener {
	for _, candidate := range listeners {
		if candidate == listener {
			return listeners
		}
	}
	return append(listeners, listener)
}

// removeHandle returns a new slice so snapshots taken by concurrent deliveries stay intact
func removeHandle(listeners []Listener, listener Listener) []Listener {
	result := make([]Listener, 0, len(listeners))
	for _, candidate := range listeners {
		if candidate != listener {
			result = append(result, candidate)
		}
	}
	return result
}

// New creates a signal manager
func New(options ...Option) *Manager {
	ret := &Manager{
		topics:    map[string][]Listener{},
		instances: map[string]map[string][]Listener{},
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
