package model

import (
	"fmt"
)

// DefaultKind is the instance factory variant used when a definition does not
// declare one.
const DefaultKind = "process"

// Definition represents an immutable process definition
type Definition struct {

	// Source provides information about the origin of the definition
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`

	// ID is the unique identifier of the definition
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable name
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Version specifies the definition version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Kind selects the instance factory used to create instances
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Nodes carries the node graph; it is opaque to the runtime.
	Nodes []*Node `json:"nodes,omitempty" yaml:"nodes,omitempty"`

	// StartNodes lists the declared start points
	StartNodes []*StartNode `json:"startNodes,omitempty" yaml:"startNodes,omitempty"`

	// ExceptionHandlers lists declared error codes and the signal raised when they match
	ExceptionHandlers []*ExceptionHandler `json:"exceptionHandlers,omitempty" yaml:"exceptionHandlers,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Source describes where a definition was loaded from
type Source struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Node is an opaque graph node
type Node struct {
	ID       string                 `json:"id" yaml:"id"`
	Name     string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Type     string                 `json:"type,omitempty" yaml:"type,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// StartNode represents a start point of a process
type StartNode struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name,omitempty" yaml:"name,omitempty"`
	Triggers []*Trigger `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Timer    *Timer     `json:"timer,omitempty" yaml:"timer,omitempty"`
	// Transformer optionally rewrites the signal payload before input mapping
	Transformer Transformer `json:"-" yaml:"-"`
}

// ExceptionHandler associates an error code with the signal raised on the
// failing instance when the code matches.
type ExceptionHandler struct {
	Code   string `json:"code" yaml:"code"`
	Signal string `json:"signal,omitempty" yaml:"signal,omitempty"`
}

// Topic returns the signal raised when the handler matches.
func (h *ExceptionHandler) Topic() string {
	if h.Signal != "" {
		return h.Signal
	}
	return "Error-" + h.Code
}

// NewDefinition creates a definition with the given id
func NewDefinition(id string) *Definition {
	return &Definition{ID: id, Name: id, Kind: DefaultKind}
}

// WithVersion sets the version of the definition
func (d *Definition) WithVersion(version string) *Definition {
	d.Version = version
	return d
}

// WithKind sets the instance factory variant
func (d *Definition) WithKind(kind string) *Definition {
	d.Kind = kind
	return d
}

// WithStartNode adds a start node
func (d *Definition) WithStartNode(node *StartNode) *Definition {
	d.StartNodes = append(d.StartNodes, node)
	return d
}

// WithExceptionHandler declares an exception handler
func (d *Definition) WithExceptionHandler(code, signal string) *Definition {
	d.ExceptionHandlers = append(d.ExceptionHandlers, &ExceptionHandler{Code: code, Signal: signal})
	return d
}

// InstanceKind returns Kind or DefaultKind when unset
func (d *Definition) InstanceKind() string {
	if d.Kind == "" {
		return DefaultKind
	}
	return d.Kind
}

// TimerStartNodes returns start nodes driven by a timer
func (d *Definition) TimerStartNodes() []*StartNode {
	var result []*StartNode
	for _, node := range d.StartNodes {
		if node != nil && node.Timer != nil {
			result = append(result, node)
		}
	}
	return result
}

// Validate performs a best-effort structural validation of the definition.
// The returned slice is empty when the definition is sound.
func (d *Definition) Validate() []error {
	var issues []error
	if d.ID == "" {
		issues = append(issues, fmt.Errorf("definition id is empty"))
	}
	seen := map[string]bool{}
	for i, node := range d.StartNodes {
		if node == nil {
			issues = append(issues, fmt.Errorf("start node %d is nil", i))
			continue
		}
		if node.ID != "" {
			if seen[node.ID] {
				issues = append(issues, fmt.Errorf("duplicate start node id %s", node.ID))
			}
			seen[node.ID] = true
		}
		if node.Timer != nil {
			if !node.Timer.Kind.IsValid() {
				issues = append(issues, fmt.Errorf("start node %s has unsupported timer kind %d", node.ID, node.Timer.Kind))
			}
		}
		for _, trigger := range node.Triggers {
			if trigger == nil {
				continue
			}
			if trigger.Type == TriggerEvent && trigger.Topic() == "" {
				issues = append(issues, fmt.Errorf("start node %s has event trigger without type filter", node.ID))
			}
		}
	}
	for _, handler := range d.ExceptionHandlers {
		if handler == nil || handler.Code == "" {
			issues = append(issues, fmt.Errorf("definition %s has exception handler without code", d.ID))
		}
	}
	return issues
}
