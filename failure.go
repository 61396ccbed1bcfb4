package procflow

import (
	"context"
	"fmt"

	"github.com/viant/procflow/metrics"
	"github.com/viant/procflow/runtime/instance"
	"github.com/viant/procflow/service/event"
	"go.uber.org/zap"
)

// handleFailure classifies a behavior failure against the declared exception
// handlers. A match keeps the instance active and signals the handler topic to
// the instance when the operation ends; otherwise the instance moves to the
// error state and the failure is returned.
func (r *Runtime) handleFailure(ctx context.Context, inst *instance.Instance, failure error) error {
	if inst.Definition != nil {
		for _, handler := range inst.Definition.ExceptionHandlers {
			if handler == nil || !r.policies.Test(handler.Code, failure) {
				continue
			}
			topic := handler.Topic()
			r.logger.Info("behavior failure handled",
				zap.String("instance", inst.ID),
				zap.String("definition", inst.DefinitionID),
				zap.String("code", handler.Code),
				zap.String("topic", topic),
				zap.Error(failure))
			queued := r.currentEngine().Queue(ctx, func(ctx context.Context) error {
				return r.signals.SignalInstanceEvent(ctx, inst.ID, topic, failure)
			})
			if !queued {
				return fmt.Errorf("failed to queue exception signal %s for %s", topic, inst.ID)
			}
			r.metrics.RecordInstance(inst.DefinitionID, metrics.OutcomeHandled)
			return nil
		}
	}
	inst.Fail(failure)
	r.metrics.RecordInstance(inst.DefinitionID, metrics.OutcomeFailed)
	r.fire(ctx, event.Failed, inst, failure)
	r.logger.Warn("process instance failed",
		zap.String("instance", inst.ID),
		zap.String("definition", inst.DefinitionID),
		zap.Error(failure))
	return fmt.Errorf("process instance %s failed: %w", inst.ID, failure)
}
