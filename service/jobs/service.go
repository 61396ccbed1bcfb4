package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/procflow/internal/clock"
	"github.com/viant/procflow/internal/idgen"
	"github.com/viant/procflow/service/messaging"
	"github.com/viant/procflow/service/uow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service schedules jobs through a backend. Scheduling is intercepted into the
// current unit of work so jobs are armed only when the operation commits. Fired
// triggers are queued and delivered to the handler by a worker pool.
type Service struct {
	backend  Backend
	queue    messaging.Queue[Trigger]
	uow      *uow.Manager
	workers  int
	logger   *zap.Logger
	observer func(trigger *Trigger, err error)
	jobs     map[string]*Job
	mux      sync.RWMutex
	cancel   context.CancelFunc
	group    *errgroup.Group
	started  bool
}

// ScheduleProcessJob schedules a job starting a new instance of job.DefinitionID
func (s *Service) ScheduleProcessJob(ctx context.Context, job ProcessJob) (string, error) {
	return s.schedule(ctx, &Job{
		ID:           job.ID,
		Kind:         KindProcess,
		DefinitionID: job.DefinitionID,
		NodeID:       job.NodeID,
		Expiration:   job.Expiration,
	})
}

// ScheduleInstanceJob schedules a job signalling job.InstanceID
func (s *Service) ScheduleInstanceJob(ctx context.Context, job InstanceJob) (string, error) {
	if job.InstanceID == "" {
		return "", fmt.Errorf("jobs: instance job without instance id")
	}
	return s.schedule(ctx, &Job{
		ID:           job.ID,
		Kind:         KindInstance,
		InstanceID:   job.InstanceID,
		DefinitionID: job.DefinitionID,
		NodeID:       job.NodeID,
		Expiration:   job.Expiration,
	})
}

func (s *Service) schedule(ctx context.Context, job *Job) (string, error) {
	if job.Expiration == nil {
		return "", ErrNoExpiration
	}
	if err := job.Expiration.Validate(); err != nil {
		return "", err
	}
	if job.ID == "" {
		job.ID = idgen.NewULID()
	}
	s.mux.Lock()
	s.jobs[job.ID] = job
	s.mux.Unlock()
	err := s.uow.Current(ctx).Intercept(&uow.WorkItem{
		Name:    "schedule job " + job.ID,
		Data:    job,
		Perform: func(ctx context.Context) error { return s.arm(ctx, job) },
		Abort:   func() { s.forget(job.ID) },
	})
	if err != nil {
		s.forget(job.ID)
		return "", err
	}
	return job.ID, nil
}

func (s *Service) arm(ctx context.Context, job *Job) error {
	s.mux.Lock()
	if job.cancelled {
		s.mux.Unlock()
		return nil
	}
	job.ScheduledAt = clock.Now()
	s.mux.Unlock()
	handle, err := s.backend.Schedule(context.WithoutCancel(ctx), job.ID, job.Expiration, func(ctx context.Context, firing *Firing) error {
		return s.fire(ctx, job, firing)
	})
	if err != nil {
		s.forget(job.ID)
		return fmt.Errorf("failed to arm job %s: %w", job.ID, err)
	}
	s.mux.Lock()
	if job.cancelled {
		s.mux.Unlock()
		s.disarm(job.ID, handle)
		return nil
	}
	job.handle = handle
	job.armed = true
	s.mux.Unlock()
	return nil
}

func (s *Service) disarm(id string, handle Handle) {
	if err := s.backend.Cancel(handle); err != nil && !errors.Is(err, ErrHandleNotFound) {
		s.logger.Warn("failed to cancel job", zap.String("job", id), zap.Error(err))
	}
}

func (s *Service) fire(ctx context.Context, job *Job, firing *Firing) error {
	s.mux.Lock()
	if job.cancelled {
		s.mux.Unlock()
		return nil
	}
	job.Fired = firing.Number
	if firing.Last {
		delete(s.jobs, job.ID)
	}
	s.mux.Unlock()
	trigger := &Trigger{
		JobID:        job.ID,
		Kind:         job.Kind,
		DefinitionID: job.DefinitionID,
		InstanceID:   job.InstanceID,
		NodeID:       job.NodeID,
		Firing:       firing.Number,
		FiredAt:      firing.At,
	}
	if err := s.queue.Publish(ctx, trigger); err != nil {
		s.logger.Error("failed to queue job trigger", zap.String("job", job.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) forget(id string) {
	s.mux.Lock()
	delete(s.jobs, id)
	s.mux.Unlock()
}

// CancelJob cancels a scheduled job; it returns false when the job is unknown
func (s *Service) CancelJob(_ context.Context, id string) bool {
	s.mux.Lock()
	job, ok := s.jobs[id]
	var armed bool
	var handle Handle
	if ok {
		delete(s.jobs, id)
		job.cancelled = true
		armed, handle = job.armed, job.handle
	}
	s.mux.Unlock()
	if !ok {
		return false
	}
	// a job still arming is disarmed by arm once the backend returns its handle
	if armed {
		s.disarm(id, handle)
	}
	return true
}

// CancelInstanceJobs cancels every job of instanceID and returns how many were cancelled
func (s *Service) CancelInstanceJobs(ctx context.Context, instanceID string) int {
	var ids []string
	s.mux.RLock()
	for id, job := range s.jobs {
		if job.InstanceID == instanceID {
			ids = append(ids, id)
		}
	}
	s.mux.RUnlock()
	count := 0
	for _, id := range ids {
		if s.CancelJob(ctx, id) {
			count++
		}
	}
	return count
}

// Jobs returns a snapshot of scheduled jobs ordered by id
func (s *Service) Jobs() []Job {
	s.mux.RLock()
	result := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, Job{
			ID:           job.ID,
			Kind:         job.Kind,
			DefinitionID: job.DefinitionID,
			InstanceID:   job.InstanceID,
			NodeID:       job.NodeID,
			Expiration:   job.Expiration,
			ScheduledAt:  job.ScheduledAt,
			Fired:        job.Fired,
		})
	}
	s.mux.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Start launches the worker pool delivering fired triggers to handler
func (s *Service) Start(ctx context.Context, handler Handler) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.started {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		s.group.Go(func() error {
			return s.work(ctx, handler)
		})
	}
	s.started = true
	return nil
}

func (s *Service) work(ctx context.Context, handler Handler) error {
	for {
		message, err := s.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, messaging.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		trigger := message.T()
		err = s.deliver(ctx, handler, trigger)
		if s.observer != nil {
			s.observer(trigger, err)
		}
		if err != nil {
			s.logger.Warn("job delivery failed",
				zap.String("job", trigger.JobID),
				zap.String("instance", trigger.InstanceID),
				zap.String("definition", trigger.DefinitionID),
				zap.Int("attempt", message.Attempt()),
				zap.Error(err))
			_ = message.Nack(err)
			continue
		}
		_ = message.Ack()
	}
}

func (s *Service) deliver(ctx context.Context, handler Handler, trigger *Trigger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panic: %v", r)
		}
	}()
	switch trigger.Kind {
	case KindProcess:
		return handler.OnProcessJob(ctx, trigger)
	case KindInstance:
		return handler.OnInstanceJob(ctx, trigger)
	}
	return fmt.Errorf("jobs: unsupported job kind %q", trigger.Kind)
}

// Stop cancels the worker pool and waits for workers to exit
func (s *Service) Stop() error {
	s.mux.Lock()
	if !s.started {
		s.mux.Unlock()
		return nil
	}
	s.started = false
	cancel, group := s.cancel, s.group
	s.mux.Unlock()
	cancel()
	return group.Wait()
}

// New creates a jobs service
func New(backend Backend, queue messaging.Queue[Trigger], manager *uow.Manager, options ...Option) *Service {
	ret := &Service{
		backend: backend,
		queue:   queue,
		uow:     manager,
		workers: 1,
		logger:  zap.NewNop(),
		jobs:    map[string]*Job{},
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
