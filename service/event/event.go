package event

import (
	"time"

	"github.com/viant/procflow/internal/clock"
	"github.com/viant/procflow/internal/idgen"
)

// Type identifies a lifecycle event
type Type string

const (
	BeforeStarted   Type = "beforeStarted"
	AfterStarted    Type = "afterStarted"
	BeforeCompleted Type = "beforeCompleted"
	AfterCompleted  Type = "afterCompleted"
	Aborted         Type = "aborted"
	Failed          Type = "failed"
	Signalled       Type = "signalled"
)

// Event is a process instance lifecycle event
type Event struct {
	ID           string                 `json:"id"`
	Type         Type                   `json:"type"`
	InstanceID   string                 `json:"instanceId"`
	DefinitionID string                 `json:"definitionId"`
	State        string                 `json:"state,omitempty"`
	Trigger      string                 `json:"trigger,omitempty"`
	Error        string                 `json:"error,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent creates an event with a time sortable id
func NewEvent(eventType Type, instanceID, definitionID string) *Event {
	return &Event{
		ID:           idgen.NewULID(),
		Type:         eventType,
		InstanceID:   instanceID,
		DefinitionID: definitionID,
		CreatedAt:    clock.Now(),
	}
}

// WithError records err on the event
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
