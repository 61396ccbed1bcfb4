package procflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/procflow/policy"
	"github.com/viant/procflow/runtime/instance"
	"github.com/viant/procflow/runtime/operation"
	"github.com/viant/procflow/service/dao/definition"
	"github.com/viant/procflow/service/event"
	"github.com/viant/procflow/service/jobs"
	"github.com/viant/procflow/service/messaging"
	"github.com/viant/procflow/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a Service
type Option func(s *Service)

// WithConfig sets the configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithLogger sets the logger shared by all components
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRepository sets the definition repository. Definitions loaded through
// the service are only stored when the repository is a *definition.Service.
func WithRepository(repository definition.Repository) Option {
	return func(s *Service) {
		s.repository = repository
	}
}

// WithFS sets the storage service used to load definitions
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithBehavior sets the start behavior of the default instance factory
func WithBehavior(behavior instance.Behavior) Option {
	return func(s *Service) {
		s.behavior = behavior
	}
}

// WithFactory registers an instance factory for a definition kind
func WithFactory(kind string, factory instance.Factory) Option {
	return func(s *Service) {
		s.factories[kind] = factory
	}
}

// WithPolicyChain sets the exception policy chain
func WithPolicyChain(chain *policy.Chain) Option {
	return func(s *Service) {
		s.policies = chain
	}
}

// WithJobBackend sets the job backend
func WithJobBackend(backend jobs.Backend) Option {
	return func(s *Service) {
		s.backend = backend
	}
}

// WithJobQueue sets the queue carrying fired job triggers to the workers
func WithJobQueue(queue messaging.Queue[jobs.Trigger]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithPublisher sets the downstream lifecycle event publisher
func WithPublisher(publisher event.Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithRegisterer enables metrics registered with registerer
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(s *Service) {
		s.registerer = registerer
	}
}

// WithOperationOptions passes options to the default operation boundary
func WithOperationOptions(options ...operation.Option) Option {
	return func(s *Service) {
		s.operationOptions = append(s.operationOptions, options...)
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter, or
// outputFile when set. Only the first initialisation takes effect.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		if err := tracing.Init(serviceName, serviceVersion, outputFile); err != nil {
			s.logger.Warn("failed to initialise tracing", zap.Error(err))
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom exporter
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			s.logger.Warn("failed to initialise tracing", zap.Error(err))
		}
	}
}
