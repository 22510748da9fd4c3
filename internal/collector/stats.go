// LOCATION: internal/collector/stats.go
//
// Per-source poll statistics. Latencies stream into a DDSketch so the
// stats endpoint can report percentiles without keeping raw samples.

package collector

import (
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// sketchAccuracy is the DDSketch relative accuracy (1% error).
const sketchAccuracy = 0.01

// sourceStats accumulates poll outcomes for one source.
// Guarded by the collector mutex.
type sourceStats struct {
	name      string
	polls     int64
	failures  int64
	rows      int64
	lastPoll  time.Time
	lastError string
	latency   *ddsketch.DDSketch
}

func (s *sourceStats) observe(rows int, elapsed time.Duration, err error) {
	s.polls++
	s.rows += int64(rows)
	s.lastPoll = time.Now()

	if err != nil {
		s.failures++
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}

	if s.latency == nil {
		sketch, serr := ddsketch.NewDefaultDDSketch(sketchAccuracy)
		if serr != nil {
			return
		}
		s.latency = sketch
	}
	if ms := float64(elapsed.Milliseconds()); ms > 0 {
		s.latency.Add(ms)
	}
}

// SourceStats is a point-in-time snapshot of one source's counters.
type SourceStats struct {
	Name      string     `json:"name"`
	Polls     int64      `json:"polls"`
	Failures  int64      `json:"failures"`
	Rows      int64      `json:"rows"`
	LastPoll  *time.Time `json:"last_poll,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	NextPoll  *time.Time `json:"next_poll,omitempty"`
	P50Ms     *float64   `json:"p50_ms,omitempty"`
	P95Ms     *float64   `json:"p95_ms,omitempty"`
}

// Stats returns a snapshot for every registered source, ordered by
// registration map iteration (callers sort if they care).
func (c *Collector) Stats() []SourceStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SourceStats, 0, len(c.stats))
	for name, st := range c.stats {
		snap := SourceStats{
			Name:      name,
			Polls:     st.polls,
			Failures:  st.failures,
			Rows:      st.rows,
			LastError: st.lastError,
		}
		if !st.lastPoll.IsZero() {
			t := st.lastPoll
			snap.LastPoll = &t
		}
		if item, ok := c.heapIdx[name]; ok && !item.deleted {
			t := time.UnixMilli(item.nextPollMs)
			snap.NextPoll = &t
		}
		if st.latency != nil && st.latency.GetCount() > 0 {
			if qs, err := st.latency.GetValuesAtQuantiles([]float64{0.5, 0.95}); err == nil && len(qs) == 2 {
				snap.P50Ms = &qs[0]
				snap.P95Ms = &qs[1]
			}
		}
		out = append(out, snap)
	}
	return out
}

// Backpressure returns how many times the job queue was full.
func (c *Collector) Backpressure() int64 {
	return c.backpressure.Load()
}
