package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflow/service/jobs"
	"github.com/viant/procflow/service/signal"
	"go.uber.org/multierr"
)

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "")
	require.NoError(t, m.Register())
	require.NoError(t, m.Register())

	other := New(reg, "")
	assert.NoError(t, other.Register())
}

func TestMetrics_RecordInstance(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test")
	require.NoError(t, m.Register())

	m.RecordInstance("order", OutcomeStarted)
	m.RecordInstance("order", OutcomeStarted)
	m.RecordInstance("order", OutcomeAborted)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.instancesTotal.WithLabelValues("order", OutcomeStarted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.instancesTotal.WithLabelValues("order", OutcomeAborted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.instancesTotal.WithLabelValues("order", OutcomeCompleted)))

	var nilMetrics *Metrics
	nilMetrics.RecordInstance("order", OutcomeStarted)
}

func TestMetrics_SignalObserver(t *testing.T) {
	var testCases = []struct {
		description     string
		delivered       int
		err             error
		expectFailures  float64
		expectDelivered float64
	}{
		{description: "all delivered", delivered: 3, expectDelivered: 3},
		{description: "single failure", delivered: 2, err: errors.New("boom"), expectDelivered: 2, expectFailures: 1},
		{description: "aggregate failure", delivered: 4, expectDelivered: 4, expectFailures: 2,
			err: &signal.DeliveryError{Topic: "orders", Failures: multierr.Combine(errors.New("a"), errors.New("b"))}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			m := New(prometheus.NewRegistry(), "")
			require.NoError(t, m.Register())
			m.SignalObserver()("orders", testCase.delivered, testCase.err)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.signalsTotal))
			assert.Equal(t, testCase.expectDelivered, testutil.ToFloat64(m.deliveriesTotal))
			assert.Equal(t, testCase.expectFailures, testutil.ToFloat64(m.listenerFailures))
		})
	}
}

func TestMetrics_JobObserver(t *testing.T) {
	m := New(prometheus.NewRegistry(), "")
	require.NoError(t, m.Register())
	observe := m.JobObserver()
	observe(&jobs.Trigger{Kind: jobs.KindProcess}, nil)
	observe(&jobs.Trigger{Kind: jobs.KindInstance}, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsTotal.WithLabelValues(string(jobs.KindProcess), "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsTotal.WithLabelValues(string(jobs.KindInstance), "failed")))
}

func TestMetrics_RecordOperation(t *testing.T) {
	m := New(prometheus.NewRegistry(), "")
	require.NoError(t, m.Register())
	m.RecordOperation(time.Now(), nil)
	m.RecordOperation(time.Now(), errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
}
