package procflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflow"
	"github.com/viant/procflow/model"
	"github.com/viant/procflow/service/dao"
	"github.com/viant/procflow/service/event"
	"github.com/viant/procflow/service/signal"
)

func TestRuntime_RegisterDefinition(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	def := model.NewDefinition("order").
		WithStartNode(eventStart("placed", "orderPlaced", "order", "event")).
		WithStartNode(eventStart("imported", "orderImported", "order", "event"))
	deploy(t, srv, def)
	rt := srv.Runtime()

	require.NoError(t, rt.RegisterDefinition(ctx, def))
	require.NoError(t, rt.RegisterDefinition(ctx, def))
	assert.Len(t, rt.Signals().Listeners("orderPlaced"), 1)
	assert.Len(t, rt.Signals().Listeners("orderImported"), 1)
	assert.Equal(t, []string{"orderImported", "orderPlaced"}, rt.StartTopics("order"))

	require.NoError(t, rt.SignalEvent(ctx, "orderPlaced", "o-1"))
	list, err := rt.ProcessInstances(ctx, dao.NewParameter(dao.ParameterDefinitionID, "order"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	value, _ := list[0].GetVariable("order")
	assert.Equal(t, "o-1", value)
	assert.Equal(t, "orderPlaced", list[0].GetTrigger())

	rt.UnregisterDefinition("order")
	assert.Empty(t, rt.Signals().Listeners("orderPlaced"))
	assert.Empty(t, rt.StartTopics("order"))
	require.NoError(t, rt.SignalEvent(ctx, "orderPlaced", "o-2"))
	list, err = rt.ProcessInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Error(t, rt.RegisterDefinition(ctx, nil))
}

func TestRuntime_RegisterDefinition_Inactive(t *testing.T) {
	ctx := context.Background()
	config := procflow.DefaultConfig()
	config.Runtime.Inactive = true
	srv := newService(t, procflow.WithConfig(config))
	deploy(t, srv, model.NewDefinition("order").WithStartNode(eventStart("placed", "orderPlaced")))
	rt := srv.Runtime()

	assert.Empty(t, rt.StartTopics("order"))
	require.NoError(t, rt.SignalEvent(ctx, "orderPlaced", nil))
	list, err := rt.ProcessInstances(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = rt.StartProcess(ctx, "order", nil)
	assert.NoError(t, err)
}

func TestRuntime_SignalEvent_StartNodes(t *testing.T) {
	vip := model.FilterFunc(func(topic string, payload interface{}) bool {
		return payload == "vip"
	})
	testCases := []struct {
		description string
		node        *model.StartNode
		payload     interface{}
		expectErr   bool
		expectVars  map[string]interface{}
	}{
		{
			description: "single mapping binds payload",
			node:        eventStart("placed", "orderPlaced", "order", "literal"),
			payload:     "o-1",
			expectVars:  map[string]interface{}{"order": "o-1"},
		},
		{
			description: "event sentinel and literals",
			node:        eventStart("placed", "orderPlaced", "order", "event", "channel", "web"),
			payload:     "o-1",
			expectVars:  map[string]interface{}{"order": "o-1", "channel": "web"},
		},
		{
			description: "no mappings",
			node:        eventStart("placed", "orderPlaced"),
			payload:     "o-1",
			expectVars:  map[string]interface{}{},
		},
		{
			description: "filter accepts",
			node: &model.StartNode{ID: "placed", Triggers: []*model.Trigger{
				model.NewEventTrigger("orderPlaced", vip).WithMapping("customer", "event"),
			}},
			payload:    "vip",
			expectVars: map[string]interface{}{"customer": "vip"},
		},
		{
			description: "filter rejects",
			node: &model.StartNode{ID: "placed", Triggers: []*model.Trigger{
				model.NewEventTrigger("orderPlaced", vip).WithMapping("customer", "event"),
			}},
			payload: "regular",
		},
		{
			description: "transformer rewrites payload",
			node: &model.StartNode{
				ID:       "placed",
				Triggers: []*model.Trigger{model.NewEventTrigger("orderPlaced").WithMapping("order", "event")},
				Transformer: model.TransformerFunc(func(payload interface{}) (interface{}, error) {
					return fmt.Sprintf("order-%v", payload), nil
				}),
			},
			payload:    7,
			expectVars: map[string]interface{}{"order": "order-7"},
		},
		{
			description: "transformer failure",
			node: &model.StartNode{
				ID:       "placed",
				Triggers: []*model.Trigger{model.NewEventTrigger("orderPlaced").WithMapping("order", "event")},
				Transformer: model.TransformerFunc(func(payload interface{}) (interface{}, error) {
					return nil, errors.New("malformed order")
				}),
			},
			payload:   7,
			expectErr: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			ctx := context.Background()
			srv := newService(t)
			deploy(t, srv, model.NewDefinition("order").WithStartNode(testCase.node))
			rt := srv.Runtime()

			err := rt.SignalEvent(ctx, "orderPlaced", testCase.payload)
			list, listErr := rt.ProcessInstances(ctx)
			require.NoError(t, listErr)
			if testCase.expectErr {
				var deliveryErr *signal.DeliveryError
				require.ErrorAs(t, err, &deliveryErr)
				assert.Empty(t, list)
				return
			}
			require.NoError(t, err)
			if testCase.expectVars == nil {
				assert.Empty(t, list)
				return
			}
			require.Len(t, list, 1)
			assert.Equal(t, testCase.expectVars, list[0].Snapshot())
		})
	}
}

func TestRuntime_SignalEvent_FailingListener(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	deploy(t, srv, model.NewDefinition("order").WithStartNode(eventStart("placed", "orderPlaced", "order", "event")))
	rt := srv.Runtime()
	var delivered int32
	rt.Signals().AddEventListener("orderPlaced", signal.NewListener("failing", func(ctx context.Context, topic string, payload interface{}) error {
		return errors.New("boom")
	}))
	rt.Signals().AddEventListener("orderPlaced", signal.NewListener("audit", func(ctx context.Context, topic string, payload interface{}) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	}))

	err := rt.SignalEvent(ctx, "orderPlaced", "o-1")
	var deliveryErr *signal.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Len(t, deliveryErr.Errors(), 1)
	assert.EqualValues(t, 1, atomic.LoadInt32(&delivered))

	list, err := rt.ProcessInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRuntime_SignalInstanceEvent(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	srv := newService(t)
	deploy(t, srv, model.NewDefinition("order"))
	rt := srv.Runtime()
	rt.AddEventListener(rec)

	first, err := rt.StartProcess(ctx, "order", nil)
	require.NoError(t, err)
	second, err := rt.StartProcess(ctx, "order", nil)
	require.NoError(t, err)
	received := &sequence{}
	for _, inst := range []string{first.ID, second.ID} {
		id := inst
		rt.Signals().AddInstanceListener(id, "approve", signal.NewListener("approve", func(ctx context.Context, topic string, payload interface{}) error {
			received.add(fmt.Sprintf("%s:%v", id, payload))
			return nil
		}))
	}

	require.NoError(t, rt.SignalInstanceEvent(ctx, first.ID, "approve", "yes"))
	assert.Equal(t, []string{first.ID + ":yes"}, received.list())
	assert.Equal(t, []event.Type{event.BeforeStarted, event.AfterStarted, event.Signalled}, rec.types(first.ID))

	assert.ErrorIs(t, rt.SignalInstanceEvent(ctx, "missing", "approve", nil), procflow.ErrInstanceNotFound)
}
