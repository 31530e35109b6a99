package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/bank-ledger/internal/ledger"
)

// Collector turns ledger events into Prometheus series.
type Collector struct {
	operations *prometheus.CounterVec
	amounts    *prometheus.CounterVec
	accounts   prometheus.Gauge
}

var _ ledger.Observer = (*Collector)(nil)

// NewCollector creates the collector and registers its series on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bank",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by outcome; outcome is ok or the rejection kind.",
		}, []string{"op", "outcome"}),
		amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bank",
			Subsystem: "ledger",
			Name:      "amount_total",
			Help:      "Sum of amounts moved by successful operations.",
		}, []string{"op"}),
		accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bank",
			Subsystem: "ledger",
			Name:      "accounts",
			Help:      "Number of open accounts.",
		}),
	}

	for _, col := range []prometheus.Collector{c.operations, c.amounts, c.accounts} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observe implements ledger.Observer.
func (c *Collector) Observe(e ledger.Event) {
	if e.Err != nil {
		outcome := string(ledger.KindOf(e.Err))
		if outcome == "" {
			outcome = "error"
		}
		c.operations.WithLabelValues(e.Op, outcome).Inc()
		return
	}

	c.operations.WithLabelValues(e.Op, "ok").Inc()
	if e.Amount > 0 {
		c.amounts.WithLabelValues(e.Op).Add(e.Amount)
	}
	if e.Op == ledger.OpCreateAccount {
		c.accounts.Inc()
	}
}
