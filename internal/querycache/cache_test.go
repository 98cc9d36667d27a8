package querycache

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Data  []string `json:"data"`
	Total int      `json:"total"`
}

func TestSetThenGet(t *testing.T) {
	c := New(time.Minute)
	require.NoError(t, c.Set("k", page{Data: []string{"a", "b"}, Total: 2}))

	var got page
	ok, err := c.Get("k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, page{Data: []string{"a", "b"}, Total: 2}, got)
}

func TestGetMissingKey(t *testing.T) {
	c := New(time.Minute)
	var got page
	ok, err := c.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiryIsLogicalUntilSweep(t *testing.T) {
	now := time.Now()
	c := New(time.Minute, WithClock(func() time.Time { return now }))
	require.NoError(t, c.Set("k", page{Total: 1}))

	var got page
	ok, _ := c.Get("k", &got)
	require.True(t, ok)

	// Advance past the TTL: the entry is logically absent but still stored.
	now = now.Add(time.Minute + time.Second)
	ok, err := c.Get("k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.ExpiredEntries)
	assert.Equal(t, 0, stats.ActiveEntries)

	removed := c.CleanupExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Stats().TotalEntries)
}

func TestSetReplacesAndRefreshesExpiry(t *testing.T) {
	now := time.Now()
	c := New(time.Minute, WithClock(func() time.Time { return now }))
	require.NoError(t, c.Set("k", page{Total: 1}))

	now = now.Add(50 * time.Second)
	require.NoError(t, c.Set("k", page{Total: 2}))

	now = now.Add(30 * time.Second) // 80s after first set, 30s after second
	var got page
	ok, err := c.Get("k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Total)
}

func TestSetSerializationFailureWritesNothing(t *testing.T) {
	c := New(time.Minute)
	err := c.Set("k", make(chan int))
	require.Error(t, err)
	assert.Equal(t, 0, c.Stats().TotalEntries)
}

func TestDelete(t *testing.T) {
	c := New(time.Minute)
	require.NoError(t, c.Set("k", page{}))
	c.Delete("k")
	var got page
	ok, _ := c.Get("k", &got)
	assert.False(t, ok)
}

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	now := time.Now()
	c := New(time.Minute, WithClock(func() time.Time { return now }), WithMetrics(NewMetrics(reg)))

	require.NoError(t, c.Set("k", page{}))
	var got page
	_, _ = c.Get("k", &got)       // hit
	_, _ = c.Get("missing", &got) // miss
	now = now.Add(2 * time.Minute)
	c.CleanupExpired()

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			if m.GetCounter() != nil {
				values[fam.GetName()] = m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				values[fam.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["restq_query_cache_hits_total"])
	assert.Equal(t, 1.0, values["restq_query_cache_misses_total"])
	assert.Equal(t, 1.0, values["restq_query_cache_evictions_total"])
	assert.Equal(t, 0.0, values["restq_query_cache_entries"])
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	c := New(time.Minute)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			_ = c.Set("k", page{Total: i})
		}
	}()
	var got page
	for i := 0; i < 500; i++ {
		_, _ = c.Get("k", &got)
	}
	<-done
}
