package procflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/procflow/model"
	"github.com/viant/procflow/service/jobs"
	"github.com/viant/procflow/service/timer"
	"go.uber.org/zap"
)

type startTimer struct {
	nodeID     string
	expiration *timer.ExpirationTime
}

func (r *Runtime) computeStartTimers(definition *model.Definition) ([]*startTimer, error) {
	var result []*startTimer
	for _, node := range definition.TimerStartNodes() {
		expiration, err := r.calculator.Compute(node.Timer)
		if err != nil {
			return nil, fmt.Errorf("invalid start timer %s of %s: %w", node.ID, definition.ID, err)
		}
		result = append(result, &startTimer{nodeID: node.ID, expiration: expiration})
	}
	return result, nil
}

// scheduleStartTimers schedules one process job per start timer; jobs are armed when the operation commits
func (r *Runtime) scheduleStartTimers(ctx context.Context, definitionID string, timers []*startTimer) error {
	if len(timers) == 0 {
		return nil
	}
	var ids []string
	err := r.runOperation(ctx, "scheduleStartTimers", map[string]string{"definition": definitionID}, func(ctx context.Context) error {
		for _, t := range timers {
			id, err := r.jobs.ScheduleProcessJob(ctx, jobs.ProcessJob{
				DefinitionID: definitionID,
				NodeID:       t.nodeID,
				Expiration:   t.expiration,
			})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.mux.Lock()
	r.timerJobs[definitionID] = append(r.timerJobs[definitionID], ids...)
	r.mux.Unlock()
	return nil
}

// ScheduleInstanceTimer schedules a job signalling TimerTriggeredTopic on instanceID
func (r *Runtime) ScheduleInstanceTimer(ctx context.Context, instanceID, nodeID string, t *model.Timer) (string, error) {
	expiration, err := r.calculator.Compute(t)
	if err != nil {
		return "", err
	}
	var id string
	err = r.runOperation(ctx, "scheduleInstanceTimer", map[string]string{"instance": instanceID}, func(ctx context.Context) error {
		inst, err := r.loadInstance(ctx, instanceID)
		if err != nil {
			return err
		}
		id, err = r.jobs.ScheduleInstanceJob(ctx, jobs.InstanceJob{
			InstanceID:   inst.ID,
			DefinitionID: inst.DefinitionID,
			NodeID:       nodeID,
			Expiration:   expiration,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// CancelTimer cancels a scheduled timer job
func (r *Runtime) CancelTimer(ctx context.Context, jobID string) bool {
	return r.jobs.CancelJob(ctx, jobID)
}

// OnProcessJob starts the definition of a fired start timer
func (r *Runtime) OnProcessJob(ctx context.Context, trigger *jobs.Trigger) error {
	_, err := r.StartProcessWithTrigger(ctx, trigger.DefinitionID, nil, TriggerTimer)
	return err
}

// OnInstanceJob signals the instance of a fired instance timer. Timers of
// instances that no longer exist are dropped.
func (r *Runtime) OnInstanceJob(ctx context.Context, trigger *jobs.Trigger) error {
	err := r.SignalInstanceEvent(ctx, trigger.InstanceID, TimerTriggeredTopic, trigger)
	if errors.Is(err, ErrInstanceNotFound) {
		r.logger.Info("dropping timer of missing instance",
			zap.String("job", trigger.JobID),
			zap.String("instance", trigger.InstanceID))
		return nil
	}
	return err
}
