package instance

import (
	"fmt"
	"sync"
	"time"

	"github.com/viant/procflow/internal/clock"
	"github.com/viant/procflow/model"
)

// Instance represents a single execution of a process definition
type Instance struct {
	ID             string                 `json:"id"`
	DefinitionID   string                 `json:"definitionId"`
	Definition     *model.Definition      `json:"-"`
	State          State                  `json:"state"`
	CorrelationKey string                 `json:"correlationKey,omitempty"`
	Variables      map[string]interface{} `json:"variables,omitempty"`
	Trigger        string                 `json:"trigger,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	StartedAt      *time.Time             `json:"startedAt,omitempty"`
	FinishedAt     *time.Time             `json:"finishedAt,omitempty"`
	Error          string                 `json:"error,omitempty"`
	mux            sync.RWMutex
}

// New creates a pending instance
func New(id string, definition *model.Definition, correlationKey string, parameters map[string]interface{}) *Instance {
	variables := make(map[string]interface{}, len(parameters))
	for k, v := range parameters {
		variables[k] = v
	}
	return &Instance{
		ID:             id,
		DefinitionID:   definition.ID,
		Definition:     definition,
		State:          StatePending,
		CorrelationKey: correlationKey,
		Variables:      variables,
		CreatedAt:      clock.Now(),
	}
}

// GetState returns the current state
func (i *Instance) GetState() State {
	i.mux.RLock()
	defer i.mux.RUnlock()
	return i.State
}

// Transition moves the instance to next state
func (i *Instance) Transition(next State) error {
	i.mux.Lock()
	defer i.mux.Unlock()
	if !i.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.State, next)
	}
	i.setState(next)
	return nil
}

// ForceState sets the state without transition checks; used by abort
func (i *Instance) ForceState(next State) {
	i.mux.Lock()
	defer i.mux.Unlock()
	i.setState(next)
}

func (i *Instance) setState(next State) {
	now := clock.Now()
	switch next {
	case StateActive:
		if i.StartedAt == nil {
			i.StartedAt = &now
		}
	case StateCompleted, StateAborted:
		i.FinishedAt = &now
	}
	i.State = next
}

// Fail moves the instance to the error state recording the cause
func (i *Instance) Fail(err error) {
	i.mux.Lock()
	defer i.mux.Unlock()
	if err != nil {
		i.Error = err.Error()
	}
	i.setState(StateError)
}

// SetTrigger records what started the instance
func (i *Instance) SetTrigger(trigger string) {
	i.mux.Lock()
	i.Trigger = trigger
	i.mux.Unlock()
}

// GetTrigger returns what started the instance
func (i *Instance) GetTrigger() string {
	i.mux.RLock()
	defer i.mux.RUnlock()
	return i.Trigger
}

// GetVariable returns a variable value
func (i *Instance) GetVariable(name string) (interface{}, bool) {
	i.mux.RLock()
	defer i.mux.RUnlock()
	value, ok := i.Variables[name]
	return value, ok
}

// SetVariable assigns a variable value
func (i *Instance) SetVariable(name string, value interface{}) {
	i.mux.Lock()
	defer i.mux.Unlock()
	if i.Variables == nil {
		i.Variables = map[string]interface{}{}
	}
	i.Variables[name] = value
}

// MergeVariables assigns all values
func (i *Instance) MergeVariables(values map[string]interface{}) {
	if len(values) == 0 {
		return
	}
	i.mux.Lock()
	defer i.mux.Unlock()
	if i.Variables == nil {
		i.Variables = map[string]interface{}{}
	}
	for k, v := range values {
		i.Variables[k] = v
	}
}

// Snapshot returns a copy of the variables
func (i *Instance) Snapshot() map[string]interface{} {
	i.mux.RLock()
	defer i.mux.RUnlock()
	result := make(map[string]interface{}, len(i.Variables))
	for k, v := range i.Variables {
		result[k] = v
	}
	return result
}
