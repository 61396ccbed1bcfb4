package instance

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/procflow/model"
)

// Behavior runs the start logic of a definition; node graph execution lives behind it.
type Behavior interface {
	Start(ctx context.Context, instance *Instance) error
}

// BehaviorFunc adapts a function to Behavior
type BehaviorFunc func(ctx context.Context, instance *Instance) error

// Start calls f
func (f BehaviorFunc) Start(ctx context.Context, instance *Instance) error {
	return f(ctx, instance)
}

// Factory creates instances of a definition
type Factory interface {
	Create(definition *model.Definition, correlationKey string, parameters map[string]interface{}) (*Instance, error)
	Behavior(definition *model.Definition) Behavior
}

// IDFunc generates instance ids
type IDFunc func() string

type factory struct {
	newID    IDFunc
	behavior Behavior
}

func (f *factory) Create(definition *model.Definition, correlationKey string, parameters map[string]interface{}) (*Instance, error) {
	return New(f.newID(), definition, correlationKey, parameters), nil
}

func (f *factory) Behavior(*model.Definition) Behavior {
	return f.behavior
}

// NewFactory creates a factory assigning ids with newID and running behavior at start.
// A nil behavior leaves started instances active.
func NewFactory(newID IDFunc, behavior Behavior) Factory {
	if behavior == nil {
		behavior = BehaviorFunc(func(context.Context, *Instance) error { return nil })
	}
	return &factory{newID: newID, behavior: behavior}
}

// Registry resolves instance factories by definition kind
type Registry struct {
	factories map[string]Factory
	mux       sync.RWMutex
}

// Register binds a factory to a definition kind
func (r *Registry) Register(kind string, factory Factory) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.factories[kind] = factory
}

// Resolve returns the factory for the definition's kind
func (r *Registry) Resolve(definition *model.Definition) (Factory, error) {
	kind := definition.InstanceKind()
	r.mux.RLock()
	factory, ok := r.factories[kind]
	r.mux.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	return factory, nil
}

// NewRegistry creates a factory registry
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}
