package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOracle("draft", 10*time.Millisecond, nil)
	m.ObserveOracle("draft", 10*time.Millisecond, errors.New("timeout"))
	m.ObserveOracle("", time.Millisecond, nil)
	m.IncTransition("ORDER_PLACED")
	m.IncGate(true)
	m.IncGate(false)
	m.IncGate(false)
	m.IncHTTP("GET", "/inventory", 200)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleRequests.WithLabelValues("draft", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleRequests.WithLabelValues("draft", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleRequests.WithLabelValues("unknown", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("ORDER_PLACED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.gateVerdicts.WithLabelValues("noise")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/inventory", "200")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOracle("draft", time.Second, nil)
		m.IncTransition("x")
		m.IncGate(true)
		m.IncHTTP("GET", "/", 200)
	})

	empty := New(nil)
	assert.NotPanics(t, func() { empty.IncGate(false) })
}

func TestOracleDurationObserved(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOracle("extract", 30*time.Millisecond, nil)
	m.ObserveOracle("extract", 2*time.Second, errors.New("timeout"))

	hist, ok := m.oracleDuration.WithLabelValues("extract").(prometheus.Histogram)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, hist.Write(&out))
	assert.Equal(t, uint64(2), out.GetHistogram().GetSampleCount())
	assert.InDelta(t, 2.03, out.GetHistogram().GetSampleSum(), 0.001)
}
