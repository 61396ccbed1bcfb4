package model

// TriggerType identifies what drives a start node trigger
type TriggerType string

const (
	// TriggerEvent starts a process when a matching signal is broadcast
	TriggerEvent TriggerType = "event"
	// TriggerConstraint starts a process when the host engine reports a condition match
	TriggerConstraint TriggerType = "constraint"
)

// EventSentinel is the in-mapping value that binds the whole signal payload
const EventSentinel = "event"

// Trigger represents a start node trigger
type Trigger struct {
	Type       TriggerType   `json:"type" yaml:"type"`
	Filters    []EventFilter `json:"-" yaml:"-"`
	InMappings Mappings      `json:"inMappings,omitempty" yaml:"inMappings,omitempty"`
}

// NewEventTrigger creates an event trigger filtering on the given topic
func NewEventTrigger(topic string, filters ...EventFilter) *Trigger {
	return &Trigger{
		Type:    TriggerEvent,
		Filters: append([]EventFilter{&EventTypeFilter{Type: topic}}, filters...),
	}
}

// WithMapping appends an input mapping
func (t *Trigger) WithMapping(name, value string) *Trigger {
	t.InMappings = append(t.InMappings, &Mapping{Name: name, Value: value})
	return t
}

// Topic returns the topic of the last type filter; empty when none is declared.
func (t *Trigger) Topic() string {
	topic := ""
	for _, filter := range t.Filters {
		if typeFilter, ok := filter.(*EventTypeFilter); ok {
			topic = typeFilter.Type
		}
	}
	return topic
}

// Mapping binds a process variable to either the signal payload or a literal value
type Mapping struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Mappings is an ordered set of mappings
type Mappings []*Mapping

// Bind converts payload into start parameters. A single mapping binds the
// whole payload; with more mappings, the EventSentinel value binds the payload
// and any other value is bound literally.
func (m Mappings) Bind(payload interface{}) map[string]interface{} {
	if len(m) == 0 {
		return nil
	}
	result := make(map[string]interface{}, len(m))
	if len(m) == 1 {
		result[m[0].Name] = payload
		return result
	}
	for _, mapping := range m {
		if mapping.Value == EventSentinel {
			result[mapping.Name] = payload
			continue
		}
		result[mapping.Name] = mapping.Value
	}
	return result
}

// EventFilter decides whether a signal is accepted by a trigger
type EventFilter interface {
	AcceptsEvent(topic string, payload interface{}) bool
}

// EventTypeFilter accepts signals with a matching topic
type EventTypeFilter struct {
	Type string `json:"type" yaml:"type"`
}

// AcceptsEvent returns true when topic equals the filter type
func (f *EventTypeFilter) AcceptsEvent(topic string, _ interface{}) bool {
	return f.Type == topic
}

// FilterFunc adapts a function to EventFilter
type FilterFunc func(topic string, payload interface{}) bool

// AcceptsEvent calls f
func (f FilterFunc) AcceptsEvent(topic string, payload interface{}) bool {
	return f(topic, payload)
}

// Transformer rewrites a signal payload before it is mapped to start parameters
type Transformer interface {
	TransformEvent(payload interface{}) (interface{}, error)
}

// TransformerFunc adapts a function to Transformer
type TransformerFunc func(payload interface{}) (interface{}, error)

// TransformEvent calls f
func (f TransformerFunc) TransformEvent(payload interface{}) (interface{}, error) {
	return f(payload)
}
