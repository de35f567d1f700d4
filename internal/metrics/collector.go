// Package metrics provides in-memory statistics for API calls made by the client.
package metrics

import (
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics holds aggregated metrics for a single endpoint.
type OperationMetrics struct {
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Operation   string
	Count       int64
	Errors      int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents the client statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Operations    []OperationSnapshot
}

// Collector aggregates per-operation call statistics and mirrors them to
// Prometheus when a registerer is supplied. All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics

	duration *prometheus.HistogramVec
	calls    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector. reg may be nil.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
	if reg == nil {
		return c
	}

	c.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "compere",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Duration of calls to the Compere API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	c.calls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compere",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Calls to the Compere API by operation and status code.",
	}, []string{"operation", "code"})
	reg.MustRegister(c.duration, c.calls)

	return c
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordCall records one call. status is the HTTP status code, 0 when the
// request never got a response. Statuses >= 400 and 0 count as errors.
func (c *Collector) RecordCall(op string, status int, duration time.Duration) {
	c.mu.Lock()
	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	if status == 0 || status >= 400 {
		m.Errors++
	}
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
	c.mu.Unlock()

	if c.duration != nil {
		c.duration.WithLabelValues(op).Observe(duration.Seconds())
		c.calls.WithLabelValues(op, strconv.Itoa(status)).Inc()
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(op string, m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Operation:   op,
		Count:       m.Count,
		Errors:      m.Errors,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics, ordered by operation name.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{UptimeSeconds: time.Since(c.startTime).Seconds()}
	for op, m := range c.ops {
		if s := snapshotOp(op, m); s != nil {
			snap.Operations = append(snap.Operations, *s)
		}
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Operation < snap.Operations[j].Operation
	})
	return snap
}
