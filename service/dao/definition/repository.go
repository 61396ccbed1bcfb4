package definition

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/procflow/model"
	"github.com/viant/procflow/service/dao"
)

// Repository is the read side used by the runtime
type Repository interface {
	Lookup(ctx context.Context, id string) (*model.Definition, error)
	List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Definition, error)
}

// Service is an in-memory definition repository
type Service struct {
	definitions map[string]*model.Definition
	mux         sync.RWMutex
}

var _ dao.Service[string, model.Definition] = (*Service)(nil)
var _ Repository = (*Service)(nil)

// Save stores definition, replacing any previous version with the same id
func (s *Service) Save(_ context.Context, definition *model.Definition) error {
	if definition == nil {
		return dao.ErrNilEntity
	}
	if definition.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	s.definitions[definition.ID] = definition
	s.mux.Unlock()
	return nil
}

// Load returns the definition with id
func (s *Service) Load(_ context.Context, id string) (*model.Definition, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	definition, ok := s.definitions[id]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return definition, nil
}

// Lookup returns the definition with id
func (s *Service) Lookup(ctx context.Context, id string) (*model.Definition, error) {
	return s.Load(ctx, id)
}

// Delete removes the definition with id
func (s *Service) Delete(_ context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.definitions[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.definitions, id)
	return nil
}

// List returns definitions ordered by id
func (s *Service) List(_ context.Context, _ ...*dao.Parameter) ([]*model.Definition, error) {
	s.mux.RLock()
	out := make([]*model.Definition, 0, len(s.definitions))
	for _, definition := range s.definitions {
		out = append(out, definition)
	}
	s.mux.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// New creates a repository holding definitions
func New(definitions ...*model.Definition) *Service {
	ret := &Service{definitions: map[string]*model.Definition{}}
	for _, definition := range definitions {
		if definition != nil && definition.ID != "" {
			ret.definitions[definition.ID] = definition
		}
	}
	return ret
}
