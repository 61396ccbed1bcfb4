package procflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/viant/procflow/model"
	"github.com/viant/procflow/service/event"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type startKey struct {
	definitionID string
	topic        string
}

// startListener starts a definition when its event trigger is signalled
type startListener struct {
	runtime      *Runtime
	definitionID string
	trigger      *model.Trigger
	transformer  model.Transformer
}

// SignalEvent filters, transforms and maps payload into start parameters.
// Inside an operation the start is queued to run when the operation ends.
func (l *startListener) SignalEvent(ctx context.Context, topic string, payload interface{}) error {
	for _, filter := range l.trigger.Filters {
		if filter != nil && !filter.AcceptsEvent(topic, payload) {
			return nil
		}
	}
	if l.transformer != nil {
		transformed, err := l.transformer.TransformEvent(payload)
		if err != nil {
			return fmt.Errorf("failed to transform %s payload for %s: %w", topic, l.definitionID, err)
		}
		payload = transformed
	}
	parameters := l.trigger.InMappings.Bind(payload)
	return l.runtime.requestStart(ctx, l.definitionID, parameters, topic)
}

// requestStart starts definitionID, deferring the start to the end of the current operation if any
func (r *Runtime) requestStart(ctx context.Context, definitionID string, parameters map[string]interface{}, trigger string) error {
	engine := r.currentEngine()
	if engine == nil {
		return ErrDisposed
	}
	queued := engine.Queue(ctx, func(ctx context.Context) error {
		_, err := r.startProcess(ctx, definitionID, "", parameters, trigger)
		return err
	})
	if queued {
		return nil
	}
	_, err := r.startProcess(ctx, definitionID, "", parameters, trigger)
	return err
}

// SignalEvent broadcasts payload to every listener of topic. Listener failures
// are aggregated and returned after all listeners ran; they do not discard the
// starts requested by the other listeners.
func (r *Runtime) SignalEvent(ctx context.Context, topic string, payload interface{}) error {
	var delivery error
	err := r.runOperation(ctx, "signalEvent", map[string]string{"topic": topic}, func(ctx context.Context) error {
		delivery = r.signals.SignalEvent(ctx, topic, payload)
		return nil
	})
	return multierr.Append(delivery, err)
}

// SignalInstanceEvent delivers payload to the listeners of one instance
func (r *Runtime) SignalInstanceEvent(ctx context.Context, instanceID, topic string, payload interface{}) error {
	var delivery error
	err := r.runOperation(ctx, "signalInstanceEvent", map[string]string{"instance": instanceID, "topic": topic}, func(ctx context.Context) error {
		inst, err := r.loadInstance(ctx, instanceID)
		if err != nil {
			return err
		}
		delivery = r.signals.SignalInstanceEvent(ctx, instanceID, topic, payload)
		r.fire(ctx, event.Signalled, inst, delivery)
		return nil
	})
	return multierr.Append(delivery, err)
}

// RegisterDefinition installs the start trigger listeners and start timers of
// definition. Registering again replaces previous registrations, so each
// (definition, topic) pair has exactly one listener.
func (r *Runtime) RegisterDefinition(ctx context.Context, definition *model.Definition) error {
	if definition == nil {
		return fmt.Errorf("definition was nil")
	}
	if r.config.Inactive {
		return nil
	}
	if r.currentEngine() == nil {
		return ErrDisposed
	}
	timers, err := r.computeStartTimers(definition)
	if err != nil {
		return err
	}
	r.UnregisterDefinition(definition.ID)

	listeners := map[startKey]*startListener{}
	for _, node := range definition.StartNodes {
		if node == nil {
			continue
		}
		for _, trigger := range node.Triggers {
			if trigger == nil || trigger.Type != model.TriggerEvent {
				continue
			}
			topic := trigger.Topic()
			if topic == "" {
				continue
			}
			listeners[startKey{definitionID: definition.ID, topic: topic}] = &startListener{
				runtime:      r,
				definitionID: definition.ID,
				trigger:      trigger,
				transformer:  node.Transformer,
			}
		}
	}
	r.mux.Lock()
	for key, listener := range listeners {
		r.starters[key] = listener
	}
	r.mux.Unlock()
	for key, listener := range listeners {
		r.signals.AddEventListener(key.topic, listener)
	}
	r.logger.Debug("registered definition",
		zap.String("definition", definition.ID),
		zap.Int("listeners", len(listeners)),
		zap.Int("timers", len(timers)))
	return r.scheduleStartTimers(ctx, definition.ID, timers)
}

// UnregisterDefinition removes the start listeners and cancels the start timers of definitionID
func (r *Runtime) UnregisterDefinition(definitionID string) {
	r.mux.Lock()
	removed := map[startKey]*startListener{}
	for key, listener := range r.starters {
		if key.definitionID == definitionID {
			removed[key] = listener
			delete(r.starters, key)
		}
	}
	jobIDs := r.timerJobs[definitionID]
	delete(r.timerJobs, definitionID)
	r.mux.Unlock()

	for key, listener := range removed {
		r.signals.RemoveEventListener(key.topic, listener)
	}
	ctx := context.Background()
	for _, id := range jobIDs {
		r.jobs.CancelJob(ctx, id)
	}
}

// StartTopics returns the topics with a start listener for definitionID
func (r *Runtime) StartTopics(definitionID string) []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	var topics []string
	for key := range r.starters {
		if key.definitionID == definitionID {
			topics = append(topics, key.topic)
		}
	}
	sort.Strings(topics)
	return topics
}
