// Package metrics records timings of the selection pipeline (state
// propagation, count refresh, filter serialization, input loading and page
// fetches).
//
// Samples are aggregated in memory with atomics, so page fetches running on
// other goroutines can record without locks. Set SF_METRICS=0 to turn
// collection off.
//
//	func (m *Model) Update() {
//	    defer metrics.Timer(metrics.SelectionUpdate)()
//	    ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("SF_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool { return enabled.Load() }

// SetEnabled turns collection on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric aggregates durations of one named operation.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64 // ns
	max   atomic.Int64 // ns
	min   atomic.Int64 // ns, 0 until the first sample
}

var registry []*TimingMetric

// newTimingMetric creates a metric that is not listed by AllTimingMetrics.
func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

func register(name string) *TimingMetric {
	m := newTimingMetric(name)
	registry = append(registry, m)
	return m
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	for old := m.max.Load(); ns > old; old = m.max.Load() {
		if m.max.CompareAndSwap(old, ns) {
			break
		}
	}
	for old := m.min.Load(); old == 0 || ns < old; old = m.min.Load() {
		if m.min.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a snapshot of the aggregates in milliseconds.
func (m *TimingMetric) Stats() TimingStats {
	count, total := m.count.Load(), m.total.Load()
	s := TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: ms(total),
		MaxMs:   ms(m.max.Load()),
		MinMs:   ms(m.min.Load()),
	}
	if count > 0 {
		s.AvgMs = ms(total / count)
	}
	return s
}

func ms(ns int64) float64 { return float64(ns) / 1e6 }

// Reset clears all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
}

// TimingStats is a snapshot of one metric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts timing m; call the returned func to record the sample.
func Timer(m *TimingMetric) func() {
	return TimerWithCallback(m, nil)
}

// TimerWithCallback is Timer that also hands the duration to cb.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

// Timing metrics for the selection pipeline.
var (
	SelectionUpdate = register("selection_update")
	CountRefresh    = register("count_refresh")
	Visibility      = register("visibility_filter")
	FilterBuild     = register("filter_build")
	InputLoad       = register("input_load")
	PageFetch       = register("page_fetch")
	UIRender        = register("ui_render")
)

// AllTimingMetrics returns the registered metrics in declaration order.
func AllTimingMetrics() []*TimingMetric {
	return registry
}

// ResetAll resets every registered metric.
func ResetAll() {
	for _, m := range registry {
		m.Reset()
	}
}

// AllTimingStats returns stats of the registered metrics that have samples.
func AllTimingStats() []TimingStats {
	stats := make([]TimingStats, 0, len(registry))
	for _, m := range registry {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}
