package host

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sarchlab/tlul/sim/hooking"
)

// Metrics is a hook that exports transaction statistics to Prometheus.
type Metrics struct {
	transactions *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	outstanding  prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{}

	m.transactions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlul",
			Subsystem: "host",
			Name:      "transactions_total",
			Help:      "Number of completed transactions",
		},
		[]string{"opcode", "outcome"},
	)

	m.latency = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tlul",
			Subsystem: "host",
			Name:      "transaction_latency_cycles",
			Help:      "Cycles from driving a request to its completion",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"opcode"},
	)

	m.outstanding = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tlul",
			Subsystem: "host",
			Name:      "outstanding_transactions",
			Help:      "Number of transactions in flight",
		},
	)

	return m
}

// Func updates the metrics at the start and the end of each transaction.
func (m *Metrics) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosTransactionStart:
		m.outstanding.Inc()
	case HookPosTransactionEnd:
		tx := ctx.Item.(*Transaction)
		opcode := tx.Req.Opcode.String()

		m.outstanding.Dec()
		m.transactions.WithLabelValues(opcode, Outcome(tx.Err)).Inc()
		m.latency.WithLabelValues(opcode).Observe(float64(tx.Latency()))
	}
}
