package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestRecordStats(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(true)

	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Errorf("count = %d, want 2", s.Count)
	}
	if s.AvgMs != 3 || s.MaxMs != 4 || s.MinMs != 2 {
		t.Errorf("unexpected stats %+v", s)
	}

	m.Reset()
	if s := m.Stats(); s.Count != 0 || s.MinMs != 0 || s.AvgMs != 0 || s.MaxMs != 0 {
		t.Errorf("Reset should clear every counter, got %+v", s)
	}
}

func TestRecordConcurrent(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(true)

	m := newTimingMetric("concurrent")
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			m.Record(d)
		}(time.Duration(i) * time.Microsecond)
	}
	wg.Wait()

	if m.Count() != 50 {
		t.Errorf("count = %d, want 50", m.Count())
	}
	if s := m.Stats(); s.MaxMs != 0.05 || s.MinMs != 0.001 {
		t.Errorf("max=%v min=%v", s.MaxMs, s.MinMs)
	}
}

func TestDisabledTimerRecordsNothing(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(false)

	m := newTimingMetric("off")
	Timer(m)()
	m.Record(time.Millisecond)
	if m.Count() != 0 {
		t.Errorf("disabled metrics recorded %d samples", m.Count())
	}
}

func TestTimerWithCallback(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(true)

	m := newTimingMetric("cb")
	var got time.Duration
	stop := TimerWithCallback(m, func(d time.Duration) { got = d })
	time.Sleep(time.Millisecond)
	stop()
	if m.Count() != 1 || got <= 0 {
		t.Errorf("count=%d callback=%v", m.Count(), got)
	}
}

func TestAllTimingStatsSkipsEmpty(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(true)
	ResetAll()
	defer ResetAll()

	PageFetch.Record(time.Millisecond)
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "page_fetch" {
		t.Errorf("stats = %+v", stats)
	}
}
