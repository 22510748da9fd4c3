package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource counts polls and optionally fails.
type fakeSource struct {
	name     string
	interval time.Duration
	rows     int
	err      error
	polls    atomic.Int64
}

func (f *fakeSource) Name() string            { return f.name }
func (f *fakeSource) Interval() time.Duration { return f.interval }

func (f *fakeSource) Poll(context.Context) (int, error) {
	f.polls.Add(1)
	return f.rows, f.err
}

func testConfig() *Config {
	return &Config{
		Workers:      2,
		QueueSize:    16,
		TickInterval: 5 * time.Millisecond,
		DrainTimeout: time.Second,
	}
}

func TestCollector_PollsRegisteredSource(t *testing.T) {
	c := New(testConfig())
	src := &fakeSource{name: "fake", interval: 10 * time.Millisecond, rows: 3}
	c.Register(src)

	c.Start()
	time.Sleep(150 * time.Millisecond)
	c.Stop()

	polls := src.polls.Load()
	if polls < 2 {
		t.Errorf("expected repeated polls, got %d", polls)
	}

	stats := c.Stats()
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat entry, got %d", len(stats))
	}
	st := stats[0]
	if st.Name != "fake" || st.Polls != polls {
		t.Errorf("stats mismatch: %+v (polls=%d)", st, polls)
	}
	if st.Rows != polls*3 {
		t.Errorf("rows: got %d, want %d", st.Rows, polls*3)
	}
	if st.Failures != 0 {
		t.Errorf("failures: got %d", st.Failures)
	}
	if st.LastPoll == nil {
		t.Error("last poll should be set")
	}
}

func TestCollector_RecordsFailures(t *testing.T) {
	c := New(testConfig())
	src := &fakeSource{name: "broken", interval: 10 * time.Millisecond, err: errors.New("upstream down")}
	c.Register(src)

	c.Start()
	time.Sleep(80 * time.Millisecond)
	c.Stop()

	stats := c.Stats()
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat entry, got %d", len(stats))
	}
	st := stats[0]
	if st.Failures == 0 || st.Failures != st.Polls {
		t.Errorf("every poll should fail: %+v", st)
	}
	if st.LastError != "upstream down" {
		t.Errorf("last error: got %q", st.LastError)
	}
}

func TestCollector_RegisterIsIdempotent(t *testing.T) {
	c := New(testConfig())
	src := &fakeSource{name: "dup", interval: time.Minute}
	c.Register(src)
	c.Register(src)

	if c.Count() != 1 {
		t.Errorf("count: got %d, want 1", c.Count())
	}
}

func TestCollector_Remove(t *testing.T) {
	c := New(testConfig())
	src := &fakeSource{name: "gone", interval: time.Minute}
	c.Register(src)

	if !c.Contains("gone") {
		t.Fatal("source should be scheduled")
	}
	c.Remove("gone")
	if c.Contains("gone") {
		t.Error("source should be gone")
	}
	if c.Count() != 0 {
		t.Errorf("count: got %d", c.Count())
	}
	// Removing again is a no-op.
	c.Remove("gone")
}

func TestCollector_RemovedSourceStopsPolling(t *testing.T) {
	c := New(testConfig())
	src := &fakeSource{name: "stopme", interval: 10 * time.Millisecond}
	c.Register(src)

	c.Start()
	time.Sleep(60 * time.Millisecond)
	c.Remove("stopme")
	after := src.polls.Load()
	time.Sleep(60 * time.Millisecond)
	c.Stop()

	// Allow one in-flight poll to finish.
	if got := src.polls.Load(); got > after+1 {
		t.Errorf("source kept polling after removal: %d -> %d", after, got)
	}
}

func TestCollector_UpdateInterval(t *testing.T) {
	c := New(testConfig())
	src := &fakeSource{name: "tune", interval: time.Hour}
	c.Register(src)

	c.UpdateInterval("tune", time.Second)

	c.mu.Lock()
	item := c.heapIdx["tune"]
	c.mu.Unlock()
	if item.intervalMs != time.Second.Milliseconds() {
		t.Errorf("interval: got %d", item.intervalMs)
	}
}

func TestCollector_NextPollTime(t *testing.T) {
	c := New(testConfig())
	src := &fakeSource{name: "due", interval: time.Minute}
	c.Register(src)

	next, ok := c.NextPollTime("due")
	if !ok {
		t.Fatal("expected a next poll time")
	}
	// Jitter keeps the first poll within one interval from now.
	if d := time.Until(next); d < 0 || d > time.Minute {
		t.Errorf("next poll out of jitter window: %v", d)
	}

	if _, ok := c.NextPollTime("missing"); ok {
		t.Error("unknown source should not have a poll time")
	}
}

func TestCollector_SurvivesPanickingSource(t *testing.T) {
	c := New(testConfig())
	c.Register(&panicSource{interval: 10 * time.Millisecond})
	healthy := &fakeSource{name: "healthy", interval: 10 * time.Millisecond}
	c.Register(healthy)

	c.Start()
	time.Sleep(100 * time.Millisecond)
	c.Stop()

	if healthy.polls.Load() == 0 {
		t.Error("healthy source should keep polling")
	}

	for _, st := range c.Stats() {
		if st.Name == "panicky" && st.Failures == 0 {
			t.Error("panics should count as failures")
		}
	}
}

type panicSource struct {
	interval time.Duration
}

func (p *panicSource) Name() string            { return "panicky" }
func (p *panicSource) Interval() time.Duration { return p.interval }
func (p *panicSource) Poll(context.Context) (int, error) {
	panic("boom")
}
