package procflow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viant/procflow"
	"github.com/viant/procflow/model"
	"github.com/viant/procflow/service/event"
)

// recorder collects lifecycle events
type recorder struct {
	mux    sync.Mutex
	events []*event.Event
}

func (r *recorder) OnEvent(_ context.Context, e *event.Event) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types(instanceID string) []event.Type {
	r.mux.Lock()
	defer r.mux.Unlock()
	var result []event.Type
	for _, e := range r.events {
		if e.InstanceID == instanceID {
			result = append(result, e.Type)
		}
	}
	return result
}

func (r *recorder) last(instanceID string) *event.Event {
	r.mux.Lock()
	defer r.mux.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].InstanceID == instanceID {
			return r.events[i]
		}
	}
	return nil
}

// publisher records published events
type publisher struct {
	mux       sync.Mutex
	published []*event.Event
	closed    bool
}

func (p *publisher) Publish(_ context.Context, e *event.Event) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.published = append(p.published, e)
	return nil
}

func (p *publisher) Close() error {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.closed = true
	return nil
}

func (p *publisher) types() []event.Type {
	p.mux.Lock()
	defer p.mux.Unlock()
	var result []event.Type
	for _, e := range p.published {
		result = append(result, e.Type)
	}
	return result
}

// sequence is a concurrency safe ordered log
type sequence struct {
	mux   sync.Mutex
	items []string
}

func (s *sequence) add(item string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.items = append(s.items, item)
}

func (s *sequence) list() []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]string(nil), s.items...)
}

func newService(t *testing.T, options ...procflow.Option) *procflow.Service {
	t.Helper()
	srv, err := procflow.New(options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

func deploy(t *testing.T, srv *procflow.Service, definitions ...*model.Definition) {
	t.Helper()
	for _, def := range definitions {
		require.NoError(t, srv.Deploy(context.Background(), def))
	}
}

func eventStart(id, topic string, mappings ...string) *model.StartNode {
	trigger := model.NewEventTrigger(topic)
	for i := 0; i+1 < len(mappings); i += 2 {
		trigger.WithMapping(mappings[i], mappings[i+1])
	}
	return &model.StartNode{ID: id, Triggers: []*model.Trigger{trigger}}
}
