package procflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/viant/procflow/metrics"
	"github.com/viant/procflow/policy"
	"github.com/viant/procflow/runtime/host"
	"github.com/viant/procflow/runtime/instance"
	"github.com/viant/procflow/runtime/operation"
	"github.com/viant/procflow/service/dao"
	"github.com/viant/procflow/service/dao/definition"
	instdao "github.com/viant/procflow/service/dao/instance"
	"github.com/viant/procflow/service/event"
	"github.com/viant/procflow/service/jobs"
	"github.com/viant/procflow/service/signal"
	"github.com/viant/procflow/service/timer"
	"github.com/viant/procflow/service/uow"
	"github.com/viant/procflow/tracing"
	"go.uber.org/zap"
)

// Trigger names recorded on started instances
const (
	TriggerAPI         = "api"
	TriggerTimer       = "timer"
	TriggerConditional = "conditional"
)

// TimerTriggeredTopic is the instance signal raised when an instance job fires
const TimerTriggeredTopic = "timerTriggered"

// Runtime creates, starts, signals and aborts process instances. Every state
// change runs inside an operation of the host engine.
type Runtime struct {
	definitions definition.Repository
	factories   *instance.Registry
	instances   *instdao.Service
	signals     *signal.Manager
	uow         *uow.Manager
	jobs        *jobs.Service
	calculator  *timer.Calculator
	policies    *policy.Chain
	publisher   event.Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	config      RuntimeConfig
	events      event.Support

	mux       sync.RWMutex
	engine    host.Engine
	starters  map[startKey]*startListener
	timerJobs map[string][]string
	disposed  bool
}

var _ jobs.Handler = (*Runtime)(nil)

// currentEngine returns the engine or nil once disposed
func (r *Runtime) currentEngine() host.Engine {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.engine
}

// runOperation runs fn inside an operation, tracing it and recording metrics for outermost calls
func (r *Runtime) runOperation(ctx context.Context, name string, attrs map[string]string, fn func(ctx context.Context) error) error {
	engine := r.currentEngine()
	if engine == nil {
		return ErrDisposed
	}
	if engine.InOperation(ctx) {
		return operation.Do(ctx, engine, fn)
	}
	ctx, span := tracing.StartSpan(ctx, "procflow."+name, tracing.KindInternal)
	span.WithAttributes(attrs)
	started := time.Now()
	err := operation.Do(ctx, engine, fn)
	r.metrics.RecordOperation(started, err)
	tracing.EndSpan(span, err)
	return err
}

// CreateProcessInstance creates a pending instance of definitionID
func (r *Runtime) CreateProcessInstance(ctx context.Context, definitionID, correlationKey string, parameters map[string]interface{}) (*instance.Instance, error) {
	var created *instance.Instance
	err := r.runOperation(ctx, "createProcessInstance", map[string]string{"definition": definitionID}, func(ctx context.Context) error {
		var err error
		created, err = r.createInstance(ctx, definitionID, correlationKey, parameters)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Runtime) createInstance(ctx context.Context, definitionID, correlationKey string, parameters map[string]interface{}) (*instance.Instance, error) {
	def, err := r.definitions.Lookup(ctx, definitionID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) || errors.Is(err, dao.ErrInvalidID) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, definitionID)
		}
		return nil, fmt.Errorf("failed to lookup definition %s: %w", definitionID, err)
	}
	factory, err := r.factories.Resolve(def)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDefinitionKind, err)
	}
	inst, err := factory.Create(def, correlationKey, parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance of %s: %w", definitionID, err)
	}
	if err = r.instances.Save(ctx, inst); err != nil {
		if errors.Is(err, dao.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateCorrelationKey, definitionID, correlationKey)
		}
		return nil, err
	}
	r.metrics.RecordInstance(definitionID, metrics.OutcomeCreated)
	return inst, nil
}

// StartProcessInstance starts a pending instance
func (r *Runtime) StartProcessInstance(ctx context.Context, id, trigger string) (*instance.Instance, error) {
	var started *instance.Instance
	err := r.runOperation(ctx, "startProcessInstance", map[string]string{"instance": id}, func(ctx context.Context) error {
		inst, err := r.loadInstance(ctx, id)
		if err != nil {
			return err
		}
		started = inst
		return r.startInstance(ctx, inst, trigger)
	})
	return started, err
}

// StartProcess creates and starts an instance of definitionID in one operation
func (r *Runtime) StartProcess(ctx context.Context, definitionID string, parameters map[string]interface{}) (*instance.Instance, error) {
	return r.startProcess(ctx, definitionID, "", parameters, TriggerAPI)
}

// StartProcessWithTrigger starts an instance recording trigger as its origin
func (r *Runtime) StartProcessWithTrigger(ctx context.Context, definitionID string, parameters map[string]interface{}, trigger string) (*instance.Instance, error) {
	return r.startProcess(ctx, definitionID, "", parameters, trigger)
}

// StartProcessWithCorrelation starts an instance owning correlationKey
func (r *Runtime) StartProcessWithCorrelation(ctx context.Context, definitionID, correlationKey string, parameters map[string]interface{}) (*instance.Instance, error) {
	return r.startProcess(ctx, definitionID, correlationKey, parameters, TriggerAPI)
}

func (r *Runtime) startProcess(ctx context.Context, definitionID, correlationKey string, parameters map[string]interface{}, trigger string) (*instance.Instance, error) {
	var started *instance.Instance
	err := r.runOperation(ctx, "startProcess", map[string]string{"definition": definitionID, "trigger": trigger}, func(ctx context.Context) error {
		inst, err := r.createInstance(ctx, definitionID, correlationKey, parameters)
		if err != nil {
			return err
		}
		started = inst
		return r.startInstance(ctx, inst, trigger)
	})
	return started, err
}

// startInstance fires the start events around the behavior; the after start
// event is fired on every exit path and carries the start error.
func (r *Runtime) startInstance(ctx context.Context, inst *instance.Instance, trigger string) (err error) {
	factory, err := r.factories.Resolve(inst.Definition)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedDefinitionKind, err)
	}
	if trigger != "" {
		inst.SetTrigger(trigger)
	}
	r.fire(ctx, event.BeforeStarted, inst, nil)
	defer func() {
		r.fire(ctx, event.AfterStarted, inst, err)
	}()
	if err = inst.Transition(instance.StateActive); err != nil {
		return err
	}
	r.metrics.RecordInstance(inst.DefinitionID, metrics.OutcomeStarted)
	if startErr := r.runBehavior(ctx, factory.Behavior(inst.Definition), inst); startErr != nil {
		return r.handleFailure(ctx, inst, startErr)
	}
	return nil
}

func (r *Runtime) runBehavior(ctx context.Context, behavior instance.Behavior, inst *instance.Instance) (err error) {
	if behavior == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("behavior panic: %v", p)
		}
	}()
	return behavior.Start(ctx, inst)
}

// CompleteProcessInstance completes an active instance, merging outputs into its variables
func (r *Runtime) CompleteProcessInstance(ctx context.Context, id string, outputs map[string]interface{}) error {
	return r.runOperation(ctx, "completeProcessInstance", map[string]string{"instance": id}, func(ctx context.Context) error {
		inst, err := r.loadInstance(ctx, id)
		if err != nil {
			return err
		}
		r.fire(ctx, event.BeforeCompleted, inst, nil)
		inst.MergeVariables(outputs)
		if err = inst.Transition(instance.StateCompleted); err != nil {
			return err
		}
		r.release(ctx, inst)
		r.metrics.RecordInstance(inst.DefinitionID, metrics.OutcomeCompleted)
		r.fire(ctx, event.AfterCompleted, inst, nil)
		return nil
	})
}

// AbortProcessInstance forces an instance to the aborted state without firing completion events
func (r *Runtime) AbortProcessInstance(ctx context.Context, id string) error {
	return r.runOperation(ctx, "abortProcessInstance", map[string]string{"instance": id}, func(ctx context.Context) error {
		inst, err := r.loadInstance(ctx, id)
		if err != nil {
			return err
		}
		inst.ForceState(instance.StateAborted)
		r.release(ctx, inst)
		r.metrics.RecordInstance(inst.DefinitionID, metrics.OutcomeAborted)
		r.fire(ctx, event.Aborted, inst, nil)
		return nil
	})
}

// release cancels the jobs and listeners of a terminated instance and
// removes it from the registry unless terminated instances are retained
func (r *Runtime) release(ctx context.Context, inst *instance.Instance) {
	if cancelled := r.jobs.CancelInstanceJobs(ctx, inst.ID); cancelled > 0 {
		r.logger.Debug("cancelled instance jobs", zap.String("instance", inst.ID), zap.Int("jobs", cancelled))
	}
	r.signals.RemoveInstanceListeners(inst.ID)
	if r.config.RetainTerminated {
		return
	}
	if err := r.instances.Delete(ctx, inst.ID); err != nil && !errors.Is(err, dao.ErrNotFound) {
		r.logger.Warn("failed to remove instance", zap.String("instance", inst.ID), zap.Error(err))
	}
}

// ProcessInstance returns the live instance with id
func (r *Runtime) ProcessInstance(ctx context.Context, id string) (*instance.Instance, error) {
	return r.loadInstance(ctx, id)
}

// ProcessInstances lists instances filtered by dao.ParameterState and dao.ParameterDefinitionID
func (r *Runtime) ProcessInstances(ctx context.Context, parameters ...*dao.Parameter) ([]*instance.Instance, error) {
	return r.instances.List(ctx, parameters...)
}

// ClearProcessInstances removes every instance, cancelling their jobs and listeners
func (r *Runtime) ClearProcessInstances(ctx context.Context) (int, error) {
	var cleared int
	err := r.runOperation(ctx, "clearProcessInstances", nil, func(ctx context.Context) error {
		ids := r.instances.Clear(ctx)
		for _, id := range ids {
			r.jobs.CancelInstanceJobs(ctx, id)
			r.signals.RemoveInstanceListeners(id)
		}
		cleared = len(ids)
		return nil
	})
	return cleared, err
}

func (r *Runtime) loadInstance(ctx context.Context, id string) (*instance.Instance, error) {
	inst, err := r.instances.Load(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) || errors.Is(err, dao.ErrInvalidID) {
			return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
		}
		return nil, err
	}
	return inst, nil
}

// fire notifies lifecycle listeners immediately and publishes the event downstream when the operation commits
func (r *Runtime) fire(ctx context.Context, eventType event.Type, inst *instance.Instance, err error) {
	e := event.NewEvent(eventType, inst.ID, inst.DefinitionID).WithError(err)
	e.State = string(inst.GetState())
	e.Trigger = inst.GetTrigger()
	r.events.Fire(ctx, e)
	if r.publisher == nil {
		return
	}
	interceptErr := r.uow.Current(ctx).Intercept(&uow.WorkItem{
		Name:    "publish " + string(eventType),
		Data:    e,
		Perform: func(ctx context.Context) error { return r.publisher.Publish(ctx, e) },
	})
	if interceptErr != nil {
		r.logger.Warn("failed to publish event", zap.String("instance", inst.ID), zap.String("event", string(eventType)), zap.Error(interceptErr))
	}
}

// AddEventListener registers a lifecycle listener
func (r *Runtime) AddEventListener(listener event.Listener) {
	r.events.Add(listener)
}

// RemoveEventListener unregisters a lifecycle listener
func (r *Runtime) RemoveEventListener(listener event.Listener) {
	r.events.Remove(listener)
}

// UnitOfWorkManager returns the unit of work manager shared with the host engine
func (r *Runtime) UnitOfWorkManager() *uow.Manager {
	return r.uow
}

// Signals returns the signal manager; behaviors use it to register instance listeners
func (r *Runtime) Signals() *signal.Manager {
	return r.signals
}

// Jobs returns the jobs service
func (r *Runtime) Jobs() *jobs.Service {
	return r.jobs
}

// Dispose removes start registrations and lifecycle listeners and detaches
// the host engine. Subsequent operations fail with ErrDisposed.
func (r *Runtime) Dispose() {
	r.mux.Lock()
	if r.disposed {
		r.mux.Unlock()
		return
	}
	r.disposed = true
	r.engine = nil
	starters := r.starters
	timerJobs := r.timerJobs
	r.starters = map[startKey]*startListener{}
	r.timerJobs = map[string][]string{}
	r.mux.Unlock()

	for key, listener := range starters {
		r.signals.RemoveEventListener(key.topic, listener)
	}
	ctx := context.Background()
	for _, ids := range timerJobs {
		for _, id := range ids {
			r.jobs.CancelJob(ctx, id)
		}
	}
	r.events.Reset()
}

func newRuntime(engine host.Engine, manager *uow.Manager) *Runtime {
	return &Runtime{
		engine:    engine,
		uow:       manager,
		policies:  policy.DefaultChain(),
		logger:    zap.NewNop(),
		starters:  map[startKey]*startListener{},
		timerJobs: map[string][]string{},
	}
}
