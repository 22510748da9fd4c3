// Package collector provides heap-based poll scheduling for data
// sources.
//
// The collector uses a min-heap to efficiently track when each source
// is due to be polled. Workers execute polls concurrently; each source
// ingests its own rows and reports only the row count back.
//
// Key features:
//   - O(log n) add/remove/update operations
//   - Jitter on initial poll to prevent thundering herd
//   - Backpressure handling when workers are busy
//   - Graceful shutdown with drain timeout
package collector

import (
	"container/heap"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/77degrees/climate-analyzer/config"
	"github.com/77degrees/climate-analyzer/internal/logging"
	"github.com/77degrees/climate-analyzer/internal/telemetry"
)

var log = logging.Component("collector")

// =============================================================================
// Types
// =============================================================================

// Source is a pollable data source. Poll ingests whatever is new and
// returns the number of rows written.
type Source interface {
	// Name uniquely identifies the source ("ha-readings", "nws-weather").
	Name() string

	// Interval is the poll cadence.
	Interval() time.Duration

	// Poll fetches and stores new data, returning the row count.
	Poll(ctx context.Context) (int, error)
}

// pollJob represents a poll job to be executed.
type pollJob struct {
	name string
}

// pollItem represents an item in the scheduler heap.
type pollItem struct {
	source     Source
	nextPollMs int64 // Unix ms when next poll is due
	intervalMs int64
	polling    bool // Currently being polled
	deleted    bool // Marked for deletion
	index      int  // Heap index for O(log n) updates
}

// =============================================================================
// Heap Implementation
// =============================================================================

// pollHeap implements heap.Interface for pollItems.
type pollHeap []*pollItem

func (h pollHeap) Len() int { return len(h) }

func (h pollHeap) Less(i, j int) bool {
	return h[i].nextPollMs < h[j].nextPollMs
}

func (h pollHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pollHeap) Push(x interface{}) {
	n := len(*h)
	item := x.(*pollItem)
	item.index = n
	*h = append(*h, item)
}

func (h *pollHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	*h = old[0 : n-1]
	return item
}

// Peek returns the top item without removing it.
func (h pollHeap) Peek() *pollItem {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// =============================================================================
// Collector Configuration
// =============================================================================

// backpressureDelayMs is the delay applied when the job queue is full.
const backpressureDelayMs = 1000

// pollTimeout bounds a single source poll.
const pollTimeout = 60 * time.Second

// Config holds collector configuration.
type Config struct {
	// Workers is the number of concurrent poll workers.
	Workers int

	// QueueSize is the job queue capacity.
	QueueSize int

	// TickInterval is how often the scheduler checks for due polls.
	TickInterval time.Duration

	// DrainTimeout is how long to wait for in-flight polls during
	// shutdown.
	DrainTimeout time.Duration
}

// DefaultConfig returns default collector configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers:      config.DefaultCollectorWorkers,
		QueueSize:    64,
		TickInterval: config.DefaultCollectorTickInterval,
		DrainTimeout: time.Duration(config.DefaultDrainTimeoutSec) * time.Second,
	}
}

// =============================================================================
// Collector
// =============================================================================

// Collector manages poll scheduling using a min-heap.
//
// Collector is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	heap    pollHeap
	heapIdx map[string]*pollItem // source name -> item
	stats   map[string]*sourceStats

	jobs chan pollJob

	shutdown chan struct{}
	wg       sync.WaitGroup

	// Worker tracking for graceful drain
	activeWorkers atomic.Int32

	// Wakeup signal for immediate processing
	wakeup chan struct{}

	// Configuration
	workers      int
	tickInterval time.Duration
	drainTimeout time.Duration

	backpressure atomic.Int64
}

// New creates a new Collector.
func New(cfg *Config) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Collector{
		heap:         make(pollHeap, 0),
		heapIdx:      make(map[string]*pollItem),
		stats:        make(map[string]*sourceStats),
		jobs:         make(chan pollJob, cfg.QueueSize),
		shutdown:     make(chan struct{}),
		wakeup:       make(chan struct{}, 1),
		workers:      cfg.Workers,
		tickInterval: cfg.TickInterval,
		drainTimeout: cfg.DrainTimeout,
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start starts the collector.
func (c *Collector) Start() {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}

	c.wg.Add(1)
	go c.scheduleLoop()

	log.Info("collector started", "workers", c.workers, "sources", c.Count())
}

// Stop stops the collector gracefully, waiting for in-flight polls up
// to the drain timeout.
func (c *Collector) Stop() {
	c.StopWithContext(context.Background())
}

// StopWithContext stops the collector with a custom context. The drain
// timeout is still respected as a maximum.
func (c *Collector) StopWithContext(ctx context.Context) {
	log.Info("collector stopping")

	close(c.shutdown)

	drainCtx, cancel := context.WithTimeout(ctx, c.drainTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("collector stopped gracefully")
	case <-drainCtx.Done():
		active := c.activeWorkers.Load()
		if active > 0 {
			log.Warn("collector drain timeout", "active_workers", active)
		} else {
			log.Info("collector stopped after drain timeout")
		}
	}

	close(c.jobs)
}

// =============================================================================
// Source Management
// =============================================================================

// Register adds a source to the schedule. The first poll gets random
// jitter to distribute load across sources with the same interval.
func (c *Collector) Register(src Source) {
	name := src.Name()
	interval := src.Interval().Milliseconds()
	if interval <= 0 {
		interval = time.Minute.Milliseconds()
	}
	jitter := rand.Int63n(interval)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.heapIdx[name]; ok {
		return
	}

	item := &pollItem{
		source:     src,
		nextPollMs: time.Now().UnixMilli() + jitter,
		intervalMs: interval,
	}

	heap.Push(&c.heap, item)
	c.heapIdx[name] = item
	c.stats[name] = &sourceStats{name: name}
	c.signalWakeup()

	log.Debug("source registered", "source", name, "interval", src.Interval())
}

// Remove removes a source from the schedule.
//
//   - If not polling: removed from both heap and index immediately
//   - If polling: marked deleted; markComplete cleans it up
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.heapIdx[name]
	if !ok {
		return
	}

	item.deleted = true

	if !item.polling {
		if item.index >= 0 {
			heap.Remove(&c.heap, item.index)
		}
		delete(c.heapIdx, name)
	}

	log.Debug("source removed", "source", name, "was_polling", item.polling)
}

// UpdateInterval updates the polling interval for a source.
func (c *Collector) UpdateInterval(name string, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.heapIdx[name]
	if !ok {
		return
	}

	item.intervalMs = interval.Milliseconds()

	log.Debug("source interval updated", "source", name, "interval", interval)
}

// Contains returns true if the source is scheduled.
func (c *Collector) Contains(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.heapIdx[name]
	return ok && !item.deleted
}

// Count returns the number of scheduled sources.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, item := range c.heapIdx {
		if !item.deleted {
			count++
		}
	}
	return count
}

// NextPollTime returns the next poll time for a source.
func (c *Collector) NextPollTime(name string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.heapIdx[name]
	if !ok || item.deleted {
		return time.Time{}, false
	}
	return time.UnixMilli(item.nextPollMs), true
}

// =============================================================================
// Schedule Loop
// =============================================================================

func (c *Collector) scheduleLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.processDueItems()
		case <-c.wakeup:
			c.processDueItems()
		case <-c.shutdown:
			return
		}
	}
}

func (c *Collector) processDueItems() {
	now := time.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.heap.Len() > 0 {
		next := c.heap.Peek()

		if next.nextPollMs > now {
			break
		}

		item := heap.Pop(&c.heap).(*pollItem)

		if item.deleted {
			delete(c.heapIdx, item.source.Name())
			continue
		}

		item.polling = true

		select {
		case c.jobs <- pollJob{name: item.source.Name()}:
		default:
			// Queue full - reschedule with backpressure delay
			item.nextPollMs = now + backpressureDelayMs
			item.polling = false
			heap.Push(&c.heap, item)
			c.backpressure.Add(1)
		}
	}
}

// markComplete reschedules a source after its poll finishes.
func (c *Collector) markComplete(name string) {
	now := time.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.heapIdx[name]
	if !ok {
		return // Already removed
	}

	if item.deleted {
		delete(c.heapIdx, name)
		// Item is already out of heap (was popped in processDueItems)
		return
	}

	item.nextPollMs = now + item.intervalMs
	item.polling = false

	if item.index < 0 {
		heap.Push(&c.heap, item)
	} else {
		heap.Fix(&c.heap, item.index)
	}

	c.signalWakeup()
}

// =============================================================================
// Worker
// =============================================================================

func (c *Collector) worker() {
	defer c.wg.Done()

	for {
		select {
		case job, ok := <-c.jobs:
			if !ok {
				return
			}

			c.executeWithRecovery(job.name)
			c.markComplete(job.name)

		case <-c.shutdown:
			return
		}
	}
}

// executeWithRecovery executes a poll with panic recovery and records
// the outcome.
func (c *Collector) executeWithRecovery(name string) {
	c.activeWorkers.Add(1)

	start := time.Now()
	var rows int
	var err error

	defer func() {
		c.activeWorkers.Add(-1)

		if r := recover(); r != nil {
			log.Error("panic in source poll", "source", name, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
		c.record(name, rows, time.Since(start), err)
	}()

	c.mu.Lock()
	item, ok := c.heapIdx[name]
	c.mu.Unlock()
	if !ok || item.deleted {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	rows, err = item.source.Poll(ctx)
	if err != nil {
		log.Warn("poll failed", "source", name, "error", err)
	} else {
		log.Debug("poll complete", "source", name, "rows", rows)
	}
}

// record updates per-source stats and telemetry.
func (c *Collector) record(name string, rows int, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	telemetry.PollsTotal.WithLabelValues(name, status).Inc()
	telemetry.PollDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if rows > 0 {
		telemetry.RowsIngested.WithLabelValues(name).Add(float64(rows))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.stats[name]
	if !ok {
		return
	}
	st.observe(rows, elapsed, err)
}

func (c *Collector) signalWakeup() {
	select {
	case c.wakeup <- struct{}{}:
	default:
		// Already signaled
	}
}
