package instance

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/procflow/runtime/instance"
	"github.com/viant/procflow/service/dao"
	"github.com/viant/procflow/service/dao/criteria"
)

// Service is an in-memory, concurrency safe registry of live process instances.
// Correlation keys are unique per definition.
type Service struct {
	instances   map[string]*instance.Instance
	correlation map[correlationKey]string
	mux         sync.RWMutex
}

type correlationKey struct {
	definitionID string
	key          string
}

var _ dao.Service[string, instance.Instance] = (*Service)(nil)

// Save registers or replaces inst
func (s *Service) Save(_ context.Context, inst *instance.Instance) error {
	if inst == nil {
		return dao.ErrNilEntity
	}
	if inst.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if inst.CorrelationKey != "" {
		key := correlationKey{definitionID: inst.DefinitionID, key: inst.CorrelationKey}
		if owner, ok := s.correlation[key]; ok && owner != inst.ID {
			return fmt.Errorf("%w: correlation key %s of %s is owned by %s", dao.ErrDuplicateKey, inst.CorrelationKey, inst.DefinitionID, owner)
		}
		s.correlation[key] = inst.ID
	}
	s.instances[inst.ID] = inst
	return nil
}

// Load returns the instance with id
func (s *Service) Load(_ context.Context, id string) (*instance.Instance, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	inst, ok := s.instances[id]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return inst, nil
}

// LoadByCorrelation returns the instance of definitionID owning key
func (s *Service) LoadByCorrelation(ctx context.Context, definitionID, key string) (*instance.Instance, error) {
	s.mux.RLock()
	id, ok := s.correlation[correlationKey{definitionID: definitionID, key: key}]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return s.Load(ctx, id)
}

// Delete removes the instance with id
func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return dao.ErrNotFound
	}
	s.release(inst)
	delete(s.instances, id)
	return nil
}

func (s *Service) release(inst *instance.Instance) {
	if inst.CorrelationKey == "" {
		return
	}
	key := correlationKey{definitionID: inst.DefinitionID, key: inst.CorrelationKey}
	if s.correlation[key] == inst.ID {
		delete(s.correlation, key)
	}
}

// List returns instances matching State and DefinitionID parameters
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*instance.Instance, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]*instance.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		fields := map[string]string{
			dao.ParameterState:        string(inst.GetState()),
			dao.ParameterDefinitionID: inst.DefinitionID,
		}
		if !criteria.Match(fields, parameters) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

// Clear removes every instance and returns the removed ids
func (s *Service) Clear(_ context.Context) []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	ids := make([]string, 0, len(s.instances))
	for id := range s.instances {
		ids = append(ids, id)
	}
	s.instances = map[string]*instance.Instance{}
	s.correlation = map[correlationKey]string{}
	return ids
}

// Size returns the number of registered instances
func (s *Service) Size() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.instances)
}

// New creates an instance registry
func New() *Service {
	return &Service{
		instances:   map[string]*instance.Instance{},
		correlation: map[correlationKey]string{},
	}
}
