package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflow/service/jobs"
	"github.com/viant/procflow/service/jobs/memory"
	qmemory "github.com/viant/procflow/service/messaging/memory"
	"github.com/viant/procflow/service/timer"
	"github.com/viant/procflow/service/uow"
)

type recordingHandler struct {
	mux      sync.Mutex
	triggers []*jobs.Trigger
	failures int
	fired    chan *jobs.Trigger
}

func (h *recordingHandler) record(trigger *jobs.Trigger) error {
	h.mux.Lock()
	if h.failures > 0 {
		h.failures--
		h.mux.Unlock()
		return errors.New("not yet")
	}
	h.triggers = append(h.triggers, trigger)
	h.mux.Unlock()
	h.fired <- trigger
	return nil
}

func (h *recordingHandler) OnProcessJob(_ context.Context, trigger *jobs.Trigger) error {
	return h.record(trigger)
}

func (h *recordingHandler) OnInstanceJob(_ context.Context, trigger *jobs.Trigger) error {
	return h.record(trigger)
}

func (h *recordingHandler) count() int {
	h.mux.Lock()
	defer h.mux.Unlock()
	return len(h.triggers)
}

func newService(t *testing.T, handler jobs.Handler) (*jobs.Service, *uow.Manager, *memory.Backend) {
	manager := uow.NewManager()
	backend := memory.New(nil)
	queue := qmemory.NewQueue[jobs.Trigger](qmemory.Config{MaxRetries: 3, RetryDelay: time.Millisecond, QueueBuffer: 10})
	service := jobs.New(backend, queue, manager, jobs.WithWorkers(2))
	require.NoError(t, service.Start(context.Background(), handler))
	t.Cleanup(func() {
		_ = backend.Close()
		_ = queue.Close()
		_ = service.Stop()
	})
	return service, manager, backend
}

func waitFor(t *testing.T, fired chan *jobs.Trigger) *jobs.Trigger {
	select {
	case trigger := <-fired:
		return trigger
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}
	return nil
}

func TestService_ScheduleCommitted(t *testing.T) {
	handler := &recordingHandler{fired: make(chan *jobs.Trigger, 10)}
	service, manager, backend := newService(t, handler)

	unit := manager.NewUnitOfWork()
	ctx := manager.Bind(context.Background(), unit)
	id, err := service.ScheduleProcessJob(ctx, jobs.ProcessJob{DefinitionID: "order", Expiration: timer.After(5 * time.Millisecond)})
	require.NoError(t, err)
	assert.Len(t, service.Jobs(), 1)
	assert.Equal(t, 0, backend.Armed(), "job must not be armed before commit")

	require.NoError(t, unit.End(context.Background()))
	trigger := waitFor(t, handler.fired)
	assert.Equal(t, id, trigger.JobID)
	assert.Equal(t, jobs.KindProcess, trigger.Kind)
	assert.Equal(t, "order", trigger.DefinitionID)
	assert.Equal(t, 1, trigger.Firing)
}

func TestService_ScheduleDiscarded(t *testing.T) {
	handler := &recordingHandler{fired: make(chan *jobs.Trigger, 10)}
	service, manager, backend := newService(t, handler)

	unit := manager.NewUnitOfWork()
	ctx := manager.Bind(context.Background(), unit)
	_, err := service.ScheduleProcessJob(ctx, jobs.ProcessJob{DefinitionID: "order", Expiration: timer.After(time.Millisecond)})
	require.NoError(t, err)
	require.NoError(t, unit.Abort())

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, service.Jobs())
	assert.Equal(t, 0, backend.Armed())
	assert.Equal(t, 0, handler.count())
}

func TestService_RepeatLimit(t *testing.T) {
	handler := &recordingHandler{fired: make(chan *jobs.Trigger, 10)}
	service, _, _ := newService(t, handler)

	_, err := service.ScheduleInstanceJob(context.Background(), jobs.InstanceJob{InstanceID: "1", Expiration: timer.Repeat(time.Millisecond, 5*time.Millisecond, 3)})
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		trigger := waitFor(t, handler.fired)
		assert.Equal(t, jobs.KindInstance, trigger.Kind)
	}
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 3, handler.count())
	assert.Empty(t, service.Jobs())
}

func TestService_RetryOnFailure(t *testing.T) {
	handler := &recordingHandler{fired: make(chan *jobs.Trigger, 10), failures: 2}
	service, _, _ := newService(t, handler)

	_, err := service.ScheduleProcessJob(context.Background(), jobs.ProcessJob{DefinitionID: "order", Expiration: timer.After(time.Millisecond)})
	require.NoError(t, err)
	waitFor(t, handler.fired)
	assert.Equal(t, 1, handler.count())
}

func TestService_CancelInstanceJobs(t *testing.T) {
	handler := &recordingHandler{fired: make(chan *jobs.Trigger, 10)}
	service, _, backend := newService(t, handler)
	ctx := context.Background()

	for _, instanceID := range []string{"1", "1", "2"} {
		_, err := service.ScheduleInstanceJob(ctx, jobs.InstanceJob{InstanceID: instanceID, Expiration: timer.After(time.Hour)})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, backend.Armed())
	assert.Equal(t, 2, service.CancelInstanceJobs(ctx, "1"))
	assert.Len(t, service.Jobs(), 1)
	assert.False(t, service.CancelJob(ctx, "missing"))
	assert.Eventually(t, func() bool { return backend.Armed() == 1 }, time.Second, 5*time.Millisecond)
}

func TestService_Validation(t *testing.T) {
	service := jobs.New(memory.New(nil), qmemory.NewQueue[jobs.Trigger](qmemory.DefaultConfig()), uow.NewManager())
	_, err := service.ScheduleProcessJob(context.Background(), jobs.ProcessJob{DefinitionID: "x"})
	assert.ErrorIs(t, err, jobs.ErrNoExpiration)
	_, err = service.ScheduleInstanceJob(context.Background(), jobs.InstanceJob{Expiration: timer.After(time.Second)})
	assert.Error(t, err)
}

type gatedBackend struct {
	*memory.Backend
	entered chan struct{}
	release chan struct{}
}

func (b *gatedBackend) Schedule(ctx context.Context, id string, expiration *timer.ExpirationTime, fire jobs.FireFunc) (jobs.Handle, error) {
	close(b.entered)
	<-b.release
	return b.Backend.Schedule(ctx, id, expiration, fire)
}

func TestService_CancelWhileArming(t *testing.T) {
	handler := &recordingHandler{fired: make(chan *jobs.Trigger, 10)}
	manager := uow.NewManager()
	backend := &gatedBackend{Backend: memory.New(nil), entered: make(chan struct{}), release: make(chan struct{})}
	queue := qmemory.NewQueue[jobs.Trigger](qmemory.DefaultConfig())
	service := jobs.New(backend, queue, manager)
	require.NoError(t, service.Start(context.Background(), handler))
	t.Cleanup(func() {
		_ = backend.Close()
		_ = queue.Close()
		_ = service.Stop()
	})

	unit := manager.NewUnitOfWork()
	ctx := manager.Bind(context.Background(), unit)
	id, err := service.ScheduleProcessJob(ctx, jobs.ProcessJob{DefinitionID: "order", Expiration: timer.After(20 * time.Millisecond)})
	require.NoError(t, err)
	committed := make(chan error, 1)
	go func() { committed <- unit.End(context.Background()) }()

	<-backend.entered
	assert.True(t, service.CancelJob(context.Background(), id))
	close(backend.release)
	require.NoError(t, <-committed)

	assert.Eventually(t, func() bool { return backend.Armed() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, handler.count())
	assert.Empty(t, service.Jobs())
	assert.False(t, service.CancelJob(context.Background(), id))
}
