package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "multistrategy"

// Metrics holds all Prometheus metrics for the trading loop.
// 實現 application.MetricsRecorder
type Metrics struct {
	CyclesTotal       *prometheus.CounterVec // labels: result
	CycleDuration     prometheus.Histogram
	SignalsTotal      *prometheus.CounterVec // labels: strategy, signal
	FailuresTotal     *prometheus.CounterVec // labels: strategy
	OrdersTotal       *prometheus.CounterVec // labels: side, result
	PositionOpenGauge prometheus.Gauge       // 0=flat, 1=long
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Polling cycles by result (ok, fetch_error, order_error)",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time from fetch to display publish for one cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_signals_total",
			Help:      "Signals emitted per strategy",
		}, []string{"strategy", "signal"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_failures_total",
			Help:      "Strategy evaluations that returned an error or panicked",
		}, []string{"strategy"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders attempted by the position gate",
		}, []string{"side", "result"}),
		PositionOpenGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_open",
			Help:      "1 when the position gate is long, 0 when flat",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.SignalsTotal,
		m.FailuresTotal,
		m.OrdersTotal,
		m.PositionOpenGauge,
	)
	return m
}

func (m *Metrics) ObserveCycle(result string, duration time.Duration) {
	m.CyclesTotal.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordSignal(strategy, signal string) {
	m.SignalsTotal.WithLabelValues(strategy, signal).Inc()
}

func (m *Metrics) RecordFailure(strategy string) {
	m.FailuresTotal.WithLabelValues(strategy).Inc()
}

func (m *Metrics) RecordOrder(side, result string) {
	m.OrdersTotal.WithLabelValues(side, result).Inc()
}

func (m *Metrics) SetPositionOpen(open bool) {
	if open {
		m.PositionOpenGauge.Set(1)
		return
	}
	m.PositionOpenGauge.Set(0)
}
