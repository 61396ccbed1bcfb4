package procflow

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/procflow/internal/idgen"
	"github.com/viant/procflow/metrics"
	"github.com/viant/procflow/model"
	"github.com/viant/procflow/policy"
	"github.com/viant/procflow/progress"
	"github.com/viant/procflow/runtime/instance"
	"github.com/viant/procflow/runtime/operation"
	"github.com/viant/procflow/service/dao/definition"
	instdao "github.com/viant/procflow/service/dao/instance"
	"github.com/viant/procflow/service/event"
	"github.com/viant/procflow/service/jobs"
	jmemory "github.com/viant/procflow/service/jobs/memory"
	"github.com/viant/procflow/service/messaging"
	mmemory "github.com/viant/procflow/service/messaging/memory"
	"github.com/viant/procflow/service/signal"
	"github.com/viant/procflow/service/timer"
	"github.com/viant/procflow/service/timer/calendar"
	"github.com/viant/procflow/service/uow"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Service wires the runtime with its collaborators
type Service struct {
	runtime          *Runtime
	config           *Config
	logger           *zap.Logger
	repository       definition.Repository
	store            *definition.Service
	loader           *definition.Loader
	fs               afs.Service
	behavior         instance.Behavior
	factories        map[string]instance.Factory
	policies         *policy.Chain
	backend          jobs.Backend
	queue            messaging.Queue[jobs.Trigger]
	jobs             *jobs.Service
	publisher        event.Publisher
	registerer       prometheus.Registerer
	metrics          *metrics.Metrics
	progress         *progress.Tracker
	operationOptions []operation.Option
	started          bool
	mux              sync.Mutex
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s.ensureBaseSetup()

	var cal timer.Calendar
	if s.config.Calendar != nil {
		businessCalendar, err := calendar.New(s.config.Calendar)
		if err != nil {
			return err
		}
		cal = businessCalendar
	}
	if s.config.Metrics.Enabled || s.registerer != nil {
		s.metrics = metrics.New(s.registerer, s.config.Metrics.Namespace)
	}

	registry := instance.NewRegistry()
	registry.Register(model.DefaultKind, instance.NewFactory(idgen.New, s.behavior))
	for kind, factory := range s.factories {
		registry.Register(kind, factory)
	}

	signalOptions := []signal.Option{signal.WithLogger(s.logger)}
	jobOptions := []jobs.Option{jobs.WithWorkers(s.config.Jobs.Workers), jobs.WithLogger(s.logger)}
	if s.metrics != nil {
		signalOptions = append(signalOptions, signal.WithObserver(s.metrics.SignalObserver()))
		jobOptions = append(jobOptions, jobs.WithObserver(s.metrics.JobObserver()))
	}
	manager := uow.NewManager()
	engine := operation.New(manager, append([]operation.Option{operation.WithLogger(s.logger)}, s.operationOptions...)...)
	s.jobs = jobs.New(s.backend, s.queue, manager, jobOptions...)

	s.runtime = newRuntime(engine, manager)
	s.runtime.definitions = s.repository
	s.runtime.factories = registry
	s.runtime.instances = instdao.New()
	s.runtime.signals = signal.New(signalOptions...)
	s.runtime.jobs = s.jobs
	s.runtime.calculator = timer.NewCalculator(cal)
	s.runtime.publisher = s.publisher
	s.runtime.metrics = s.metrics
	s.runtime.logger = s.logger
	s.runtime.config = s.config.Runtime
	if s.policies != nil {
		s.runtime.policies = s.policies
	}
	s.progress = progress.New()
	s.runtime.AddEventListener(s.progress)
	return nil
}

func (s *Service) ensureBaseSetup() {
	if s.fs == nil {
		s.fs = afs.New()
	}
	s.loader = definition.NewLoader(s.fs)
	if s.repository == nil {
		s.store = definition.New()
		s.repository = s.store
	} else if store, ok := s.repository.(*definition.Service); ok {
		s.store = store
	}
	if s.queue == nil {
		s.queue = mmemory.NewQueue[jobs.Trigger](mmemory.Config{
			MaxRetries:  s.config.Jobs.MaxRetries,
			RetryDelay:  s.config.Jobs.RetryDelay,
			DeadLetter:  true,
			QueueBuffer: s.config.Jobs.QueueBuffer,
		})
	}
	if s.backend == nil {
		s.backend = jmemory.New(s.logger)
	}
}

// Runtime returns the process runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// Metrics returns the runtime collectors, or nil when metrics are disabled
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// Progress returns the instance counters tracker
func (s *Service) Progress() *progress.Tracker {
	return s.progress
}

// Start registers the metrics, installs the start triggers and timers of every
// definition in the repository and launches the job workers.
func (s *Service) Start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.started {
		return nil
	}
	if s.metrics != nil {
		if err := s.metrics.Register(); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	definitions, err := s.repository.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list definitions: %w", err)
	}
	for _, def := range definitions {
		if err = s.runtime.RegisterDefinition(ctx, def); err != nil {
			return err
		}
	}
	if err = s.jobs.Start(context.WithoutCancel(ctx), s.runtime); err != nil {
		return err
	}
	s.started = true
	return nil
}

// Stop disposes the runtime and stops the job workers, backend, queue and publisher
func (s *Service) Stop() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.runtime.Dispose()
	var err error
	if closer, ok := s.backend.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	err = multierr.Append(err, s.queue.Close())
	err = multierr.Append(err, s.jobs.Stop())
	if s.publisher != nil {
		err = multierr.Append(err, s.publisher.Close())
	}
	s.started = false
	return err
}

// Deploy stores definition and registers its start triggers and timers
func (s *Service) Deploy(ctx context.Context, def *model.Definition) error {
	if s.store == nil {
		return fmt.Errorf("repository does not support deployment")
	}
	if issues := def.Validate(); len(issues) > 0 {
		return fmt.Errorf("invalid definition %s: %w", def.ID, multierr.Combine(issues...))
	}
	if err := s.store.Save(ctx, def); err != nil {
		return err
	}
	return s.runtime.RegisterDefinition(ctx, def)
}

// Undeploy removes the definition and its registrations
func (s *Service) Undeploy(ctx context.Context, definitionID string) error {
	if s.store == nil {
		return fmt.Errorf("repository does not support deployment")
	}
	s.runtime.UnregisterDefinition(definitionID)
	return s.store.Delete(ctx, definitionID)
}

// LoadDefinition loads and deploys the YAML definition at URL
func (s *Service) LoadDefinition(ctx context.Context, URL string) (*model.Definition, error) {
	def, err := s.loader.Load(ctx, URL)
	if err != nil {
		return nil, err
	}
	if err = s.Deploy(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// LoadDefinitions loads and deploys every YAML definition under baseURL
func (s *Service) LoadDefinitions(ctx context.Context, baseURL string) ([]*model.Definition, error) {
	definitions, err := s.loader.LoadAll(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	for _, def := range definitions {
		if err = s.Deploy(ctx, def); err != nil {
			return nil, err
		}
	}
	return definitions, nil
}

// UpsertDefinition decodes YAML data and deploys it, replacing any definition with the same id
func (s *Service) UpsertDefinition(ctx context.Context, data []byte) (*model.Definition, error) {
	def, err := definition.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	if err = s.Deploy(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// New creates a service
func New(options ...Option) (*Service, error) {
	ret := &Service{
		config:    DefaultConfig(),
		logger:    zap.NewNop(),
		factories: map[string]instance.Factory{},
	}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
