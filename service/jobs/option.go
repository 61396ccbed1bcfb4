package jobs

import "go.uber.org/zap"

// Option configures a Service
type Option func(s *Service)

// WithWorkers sets the number of workers delivering fired jobs
func WithWorkers(workers int) Option {
	return func(s *Service) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers a callback invoked after each delivery attempt
func WithObserver(fn func(trigger *Trigger, err error)) Option {
	return func(s *Service) {
		s.observer = fn
	}
}
