// Package metrics provides in-process instrumentation for dbw.
//
// Timing metrics cover the catalog round trip and tree construction;
// counters track how fetches end (accepted, rejected as stale, malformed,
// failed). Values are kept with atomic operations. Collection is on by
// default and can be disabled with DBW_METRICS=0.
//
//	func build() {
//	    defer metrics.Timer(metrics.TreeBuild)()
//	    // ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("DBW_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric tracks timing statistics for a named operation.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 means not set
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record records a single measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns all timing statistics at once.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer returns a function that records elapsed time when called.
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    atomic.Int64
}

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc adds one.
func (c *Counter) Inc() {
	if !Enabled() {
		return
	}
	c.n.Add(1)
}

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n.Load() }

// Reset sets the count back to zero.
func (c *Counter) Reset() { c.n.Store(0) }

// Global metrics.
var (
	CatalogFetch = newTimingMetric("catalog_fetch")
	TreeBuild    = newTimingMetric("tree_build")
	UIRender     = newTimingMetric("ui_render")

	FetchesIssued    = newCounter("fetches_issued")
	FetchesAccepted  = newCounter("fetches_accepted")
	FetchesRejected  = newCounter("fetches_rejected")
	FetchesMalformed = newCounter("fetches_malformed")
	FetchesFailed    = newCounter("fetches_failed")
)

// AllTimingMetrics returns all registered timing metrics.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{CatalogFetch, TreeBuild, UIRender}
}

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{FetchesIssued, FetchesAccepted, FetchesRejected, FetchesMalformed, FetchesFailed}
}

// ResetAll resets every metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
	for _, c := range AllCounters() {
		c.Reset()
	}
}

// Snapshot is a point-in-time view of all metrics with data.
type Snapshot struct {
	Timings  []TimingStats    `json:"timings,omitempty"`
	Counters map[string]int64 `json:"counters"`
}

// Collect returns a Snapshot of all metrics. Timings without measurements
// are left out.
func Collect() Snapshot {
	s := Snapshot{Counters: make(map[string]int64)}
	for _, m := range AllTimingMetrics() {
		if m.Count() > 0 {
			s.Timings = append(s.Timings, m.Stats())
		}
	}
	for _, c := range AllCounters() {
		s.Counters[c.Name()] = c.Value()
	}
	return s
}
