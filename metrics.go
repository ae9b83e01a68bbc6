package tally

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts ledger and market data events. A nil *Metrics is valid and
// counts nothing.
type Metrics struct {
	recorded        *prometheus.CounterVec
	denied          *prometheus.CounterVec
	storageFailures prometheus.Counter
	fetchFailures   *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "transactions_recorded_total",
			Help:      "Transactions appended to the ledger, by type.",
		}, []string{"kind"}),
		denied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "transactions_denied_total",
			Help:      "Transactions denied for insufficient funds, by type.",
		}, []string{"kind"}),
		storageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "storage_failures_total",
			Help:      "Ledger operations rolled back after a storage failure.",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "price_fetch_failures_total",
			Help:      "Price series that could not be fetched, by symbol.",
		}, []string{"symbol"}),
	}
	reg.MustRegister(m.recorded, m.denied, m.storageFailures, m.fetchFailures)
	return m
}

func (m *Metrics) countRecorded(k Kind) {
	if m != nil {
		m.recorded.WithLabelValues(k.String()).Inc()
	}
}

func (m *Metrics) countDenied(k Kind) {
	if m != nil {
		m.denied.WithLabelValues(k.String()).Inc()
	}
}

func (m *Metrics) countStorageFailure() {
	if m != nil {
		m.storageFailures.Inc()
	}
}

func (m *Metrics) countFetchFailure(symbol string) {
	if m != nil {
		m.fetchFailures.WithLabelValues(symbol).Inc()
	}
}
