package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)
	m.Record(3 * time.Millisecond)

	s := m.Stats()
	if s.Count != 3 {
		t.Errorf("expected count 3, got %d", s.Count)
	}
	if s.MinMs != 2 || s.MaxMs != 4 || s.AvgMs != 3 {
		t.Errorf("unexpected stats %+v", s)
	}

	m.Reset()
	if m.Count() != 0 || m.Stats().MaxMs != 0 {
		t.Errorf("reset did not clear metric: %+v", m.Stats())
	}
}

func TestDisabledMetricsIgnored(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("off")
	m.Record(time.Millisecond)
	Timer(m)()
	c := newCounter("off")
	c.Inc()
	if m.Count() != 0 || c.Value() != 0 {
		t.Errorf("expected no collection while disabled")
	}
}

func TestCounterConcurrent(t *testing.T) {
	SetEnabled(true)
	c := newCounter("concurrent")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()
	if c.Value() != 1000 {
		t.Errorf("expected 1000, got %d", c.Value())
	}
}

func TestCollect(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	defer ResetAll()

	FetchesIssued.Inc()
	FetchesIssued.Inc()
	FetchesRejected.Inc()
	TreeBuild.Record(time.Millisecond)

	s := Collect()
	if s.Counters["fetches_issued"] != 2 || s.Counters["fetches_rejected"] != 1 {
		t.Errorf("unexpected counters %v", s.Counters)
	}
	if len(s.Timings) != 1 || s.Timings[0].Name != "tree_build" {
		t.Errorf("expected only tree_build timing, got %+v", s.Timings)
	}
}
