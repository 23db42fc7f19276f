package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestNewCollectorsRegistersAndStartsAtZero(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollectors(registry)

	require.Zero(t, counterValue(t, c.OrdersAdmitted))
	require.Zero(t, counterValue(t, c.TradesPersisted))
	require.Zero(t, counterValue(t, c.MatchingTicks))
	require.Zero(t, gaugeValue(t, c.ActiveSessions))

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 4)
}

func TestCollectorsIncrement(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollectors(registry)

	c.OrdersAdmitted.Inc()
	c.TradesPersisted.Add(3)
	c.MatchingTicks.Inc()
	c.ActiveSessions.Inc()
	c.ActiveSessions.Inc()
	c.ActiveSessions.Dec()

	require.Equal(t, float64(1), counterValue(t, c.OrdersAdmitted))
	require.Equal(t, float64(3), counterValue(t, c.TradesPersisted))
	require.Equal(t, float64(1), counterValue(t, c.MatchingTicks))
	require.Equal(t, float64(1), gaugeValue(t, c.ActiveSessions))
}

func TestNewCollectorsPanicsOnDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewCollectors(registry)

	require.Panics(t, func() {
		NewCollectors(registry)
	})
}
