package ratestore

import (
	"github.com/prometheus/client_golang/prometheus"
	travel "go-travel-rates"
)

// Metrics the collectors recorded by a Store. A nil *Metrics records nothing.
type Metrics struct {
	// Fetches counts fetch attempts by outcome: applied, failed, discarded, offline
	Fetches *prometheus.CounterVec
	// TableTimestamp is the timestamp of the current table in unix seconds
	TableTimestamp prometheus.Gauge
}

// NewMetrics creates the store collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travelrates",
			Subsystem: "ratestore",
			Name:      "fetches_total",
			Help:      "Rate table fetches by outcome.",
		}, []string{"outcome"}),
		TableTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "travelrates",
			Subsystem: "ratestore",
			Name:      "table_timestamp_seconds",
			Help:      "When the current rate table was fetched.",
		}),
	}
	reg.MustRegister(m.Fetches, m.TableTimestamp)
	return m
}

func (m *Metrics) fetched(outcome string) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeTable(table *travel.RateTable) {
	if m == nil || table == nil {
		return
	}
	m.TableTimestamp.Set(float64(table.Timestamp) / 1000)
}
