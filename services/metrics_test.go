package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMetrics_Counters(t *testing.T) {
	metrics := NewInMemoryMetrics()

	tags := map[string]string{"mode": "full", "outcome": "hit"}
	metrics.IncrementCounter("tree_cache_requests", tags)
	metrics.IncrementCounter("tree_cache_requests", tags)
	metrics.IncrementCounter("tree_cache_requests", map[string]string{"mode": "full", "outcome": "miss"})

	all := metrics.GetMetrics()
	counters, ok := all["counters"].(map[string]*Counter)
	require.True(t, ok)

	hit := counters["tree_cache_requests|mode:full|outcome:hit"]
	require.NotNil(t, hit)
	assert.Equal(t, int64(2), hit.Value)

	miss := counters["tree_cache_requests|mode:full|outcome:miss"]
	require.NotNil(t, miss)
	assert.Equal(t, int64(1), miss.Value)
}

func TestInMemoryMetrics_TagOrderIrrelevant(t *testing.T) {
	metrics := NewInMemoryMetrics()

	metrics.IncrementCounter("requests", map[string]string{"a": "1", "b": "2"})
	metrics.IncrementCounter("requests", map[string]string{"b": "2", "a": "1"})

	all := metrics.GetMetrics()
	counters := all["counters"].(map[string]*Counter)
	require.Len(t, counters, 1)
	assert.Equal(t, int64(2), counters["requests|a:1|b:2"].Value)
}

func TestInMemoryMetrics_Histograms(t *testing.T) {
	metrics := NewInMemoryMetrics()

	metrics.RecordDuration("tree_cache_latency", 10*time.Millisecond, nil)
	metrics.RecordDuration("tree_cache_latency", 30*time.Millisecond, nil)

	all := metrics.GetMetrics()
	histograms := all["histograms"].(map[string]*Histogram)

	latency := histograms["tree_cache_latency"]
	require.NotNil(t, latency)
	assert.Equal(t, int64(2), latency.Count)
	assert.Equal(t, 10*time.Millisecond, latency.Min)
	assert.Equal(t, 30*time.Millisecond, latency.Max)
	assert.Equal(t, 20*time.Millisecond, latency.Average)
}

func TestInMemoryMetrics_Gauges(t *testing.T) {
	metrics := NewInMemoryMetrics()

	metrics.SetGauge("cache_size", 42, nil)
	metrics.SetGauge("cache_size", 17, nil)

	all := metrics.GetMetrics()
	gauges := all["gauges"].(map[string]*Gauge)
	assert.Equal(t, float64(17), gauges["cache_size"].Value)
}

func TestInMemoryMetrics_Reset(t *testing.T) {
	metrics := NewInMemoryMetrics()

	metrics.IncrementCounter("requests", nil)
	metrics.RecordDuration("latency", time.Millisecond, nil)
	metrics.Reset()

	all := metrics.GetMetrics()
	assert.NotContains(t, all, "counters")
	assert.NotContains(t, all, "histograms")
	assert.Contains(t, all, "system")
}
