package metrics_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/raphaelgruber/compere-go/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorSnapshot(t *testing.T) {
	c := metrics.NewCollector(nil)

	c.RecordCall("GET /ratings", 200, 10*time.Millisecond)
	c.RecordCall("GET /ratings", 500, 30*time.Millisecond)
	c.RecordCall("POST /comparisons/", 0, 5*time.Millisecond)

	snap := c.Snapshot()
	require.Len(t, snap.Operations, 2)

	ratings := snap.Operations[0]
	assert.Equal(t, "GET /ratings", ratings.Operation)
	assert.Equal(t, int64(2), ratings.Count)
	assert.Equal(t, int64(1), ratings.Errors)
	assert.Equal(t, int64(10), ratings.MinTimeMs)
	assert.Equal(t, int64(30), ratings.MaxTimeMs)
	assert.InDelta(t, 20.0, ratings.AvgTimeMs, 0.001)

	create := snap.Operations[1]
	assert.Equal(t, "POST /comparisons/", create.Operation)
	assert.Equal(t, int64(1), create.Errors, "transport failures count as errors")
}

func TestCollectorEmpty(t *testing.T) {
	snap := metrics.NewCollector(nil).Snapshot()
	assert.Empty(t, snap.Operations)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestCollectorConcurrent(t *testing.T) {
	c := metrics.NewCollector(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordCall("GET /entities/", 200, time.Millisecond)
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.Len(t, snap.Operations, 1)
	assert.Equal(t, int64(50), snap.Operations[0].Count)
}

func TestCollectorPrometheusExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordCall("GET /ratings", 200, 10*time.Millisecond)
	c.RecordCall("GET /ratings", 401, 10*time.Millisecond)

	expected := `
# HELP compere_client_requests_total Calls to the Compere API by operation and status code.
# TYPE compere_client_requests_total counter
compere_client_requests_total{code="200",operation="GET /ratings"} 1
compere_client_requests_total{code="401",operation="GET /ratings"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "compere_client_requests_total")
	assert.NoError(t, err)
}
