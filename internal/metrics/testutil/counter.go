package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// CounterValue returns the current value for a CounterVec label set.
func CounterValue(tb testing.TB, vec *prometheus.CounterVec, labels ...string) float64 {
	tb.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(tb, err)
	return MetricValue(tb, counter)
}

// MetricValue returns the current value of a plain counter or gauge.
func MetricValue(tb testing.TB, metric prometheus.Metric) float64 {
	tb.Helper()

	var m dto.Metric
	require.NoError(tb, metric.Write(&m))
	if m.GetCounter() != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}
