package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCycle("ok", 20*time.Millisecond)
	m.ObserveCycle("ok", 30*time.Millisecond)
	m.ObserveCycle("fetch_error", time.Millisecond)
	m.RecordSignal("supertrend", "buy")
	m.RecordFailure("bollinger_bands")
	m.RecordOrder("buy", "filled")
	m.SetPositionOpen(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("fetch_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("supertrend", "buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("bollinger_bands")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersTotal.WithLabelValues("buy", "filled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PositionOpenGauge))

	m.SetPositionOpen(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PositionOpenGauge))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
