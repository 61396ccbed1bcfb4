package signal

import "go.uber.org/zap"

// Option configures a Manager
type Option func(m *Manager)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver registers a callback invoked after each delivery
func WithObserver(fn func(topic string, delivered int, err error)) Option {
	return func(m *Manager) {
		m.observer = fn
	}
}
