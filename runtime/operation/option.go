package operation

import "go.uber.org/zap"

// Option configures a Boundary
type Option func(b *Boundary)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Boundary) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBeginHook registers a function called each time the boundary is acquired
func WithBeginHook(fn func()) Option {
	return func(b *Boundary) {
		b.onBegin = fn
	}
}
