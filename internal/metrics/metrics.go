// Package metrics exposes Prometheus collectors for the matching pipeline
// (admission, periodic persistence, session fan-out).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups the counters and gauges the rest of the module
// increments inline rather than scraping state after the fact.
type Collectors struct {
	OrdersAdmitted  prometheus.Counter
	TradesPersisted prometheus.Counter
	MatchingTicks   prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// NewCollectors builds and registers the collector set against registry.
func NewCollectors(registry prometheus.Registerer) *Collectors {
	c := &Collectors{
		OrdersAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradsys_orders_admitted_total",
			Help: "Total number of orders that completed the admission path.",
		}),
		TradesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradsys_trades_persisted_total",
			Help: "Total number of trades durably persisted by the matching service.",
		}),
		MatchingTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradsys_matching_ticks_total",
			Help: "Total number of periodic matching service tick executions.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradsys_active_sessions",
			Help: "Number of websocket sessions currently in the ACTIVE state.",
		}),
	}

	registry.MustRegister(c.OrdersAdmitted, c.TradesPersisted, c.MatchingTicks, c.ActiveSessions)
	return c
}
