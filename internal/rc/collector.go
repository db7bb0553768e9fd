package rc

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config bounds when a sweep runs: either threshold is crossed, or
// the timer fires, whichever comes first. A sweep may also be
// triggered explicitly.
type Config struct {
	SuspectThreshold int
	AllocThreshold   int64
	SweepInterval    time.Duration
}

// DefaultConfig favors small, frequent housekeeping passes over large,
// rare ones.
func DefaultConfig() Config {
	return Config{SuspectThreshold: 64, AllocThreshold: 1024, SweepInterval: 200 * time.Millisecond}
}

// Stats summarizes a collector's lifetime activity.
type Stats struct {
	Sweeps       int64
	Collected    int64
	SuspectsSeen int64
}

// Collector runs the concurrent cycle-collection algorithm on a
// dedicated background goroutine that never blocks retain/release.
// Ordinary Retain/Release only ever take the suspect-set mutex for an O(1) map
// insert; the actual mark/scan/collect sweep runs entirely on the
// background goroutine, so it cannot stall a caller doing RC
// bookkeeping inline in generated code.
type Collector struct {
	cfg Config
	log *zap.Logger

	mu              sync.Mutex
	suspects        map[*Box]struct{}
	allocSinceSweep int64

	trigger chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

// NewCollector builds a collector. Call Start to launch its
// background goroutine; a Collector with Start never called is inert
// (boxes still accumulate in the suspect set, just never swept) — used
// by tests that want to call Collect synchronously instead.
func NewCollector(log *zap.Logger, cfg Config) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{
		cfg:      cfg,
		log:      log,
		suspects: make(map[*Box]struct{}),
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.loop()
}

// Stop signals the background loop to exit and waits for it.
func (c *Collector) Stop() {
	close(c.stop)
	c.wg.Wait()
}

func (c *Collector) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Collect()
		case <-c.trigger:
			c.Collect()
		}
	}
}

func (c *Collector) suspect(b *Box) {
	c.mu.Lock()
	if !b.buffered {
		b.buffered = true
		c.suspects[b] = struct{}{}
	}
	n := len(c.suspects)
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.SuspectsSeen++
	c.statsMu.Unlock()

	if n >= c.cfg.SuspectThreshold {
		c.fireTrigger()
	}
}

// NotifyAlloc records that a new box was allocated, so a sustained
// allocation burst with few releases still eventually triggers a
// sweep even if nothing has been added to the suspect set yet.
func (c *Collector) NotifyAlloc() {
	c.mu.Lock()
	c.allocSinceSweep++
	over := c.allocSinceSweep >= c.cfg.AllocThreshold
	c.mu.Unlock()
	if over {
		c.fireTrigger()
	}
}

func (c *Collector) fireTrigger() {
	select {
	case c.trigger <- struct{}{}:
	default: // a sweep is already pending
	}
}

// Snapshot returns the current suspect-set size, for tests/metrics.
func (c *Collector) Snapshot() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.suspects)
}

func (c *Collector) StatsSnapshot() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// Collect runs one Bacon-Rajan trial-deletion pass over the current
// suspect snapshot: mark candidate subgraphs gray (decrementing a
// scratch count, crc, along every internal
// edge), scan them to tell internal cycles (crc reached zero: no
// external root keeps them alive) apart from externally-rooted
// subgraphs (crc > 0: some box outside the subgraph still points in),
// then sweep unmarked (white) boxes by releasing their children
// through the ordinary RC path, which recursively frees anything that
// was only being kept alive by the cycle itself.
func (c *Collector) Collect() int {
	c.mu.Lock()
	snapshot := make([]*Box, 0, len(c.suspects))
	for b := range c.suspects {
		snapshot = append(snapshot, b)
		b.buffered = false
	}
	c.suspects = make(map[*Box]struct{})
	c.allocSinceSweep = 0
	c.mu.Unlock()

	if len(snapshot) == 0 {
		return 0
	}

	for _, b := range snapshot {
		markGray(b)
	}
	for _, b := range snapshot {
		scan(b)
	}

	var collected []*Box
	for _, b := range snapshot {
		collectWhite(b, c, &collected)
	}

	c.statsMu.Lock()
	c.stats.Sweeps++
	c.stats.Collected += int64(len(collected))
	c.statsMu.Unlock()

	if len(collected) > 0 {
		c.log.Debug("cycle collector reclaimed garbage",
			zap.Int("collected", len(collected)),
			zap.Int("suspects", len(snapshot)),
		)
	}
	return len(collected)
}

// markGray colors b and everything reachable from it gray, seeding
// each box's crc scratch field from its real strong count on first
// visit and then decrementing a child's crc once per internal edge
// that points to it. A child must be colored (and its crc seeded)
// before any edge decrements it — otherwise the decrement would land
// on a still-zero-valued scratch field instead of the real count — so
// every edge visit recurses into the child first and only then
// applies this edge's decrement.
func markGray(b *Box) {
	if b.color == colorGray {
		return
	}
	b.color = colorGray
	b.crc = b.strong.Load()
	if b.value == nil {
		return
	}
	var children []*Box
	b.value.Trace(func(child *Box) {
		children = append(children, child)
	})
	for _, child := range children {
		markGray(child)
		child.crc--
	}
}

func scan(b *Box) {
	if b.color != colorGray {
		return
	}
	if b.crc > 0 {
		scanBlack(b)
		return
	}
	b.color = colorWhite
	if b.value == nil {
		return
	}
	b.value.Trace(func(child *Box) {
		scan(child)
	})
}

func scanBlack(b *Box) {
	b.color = colorBlack
	if b.value == nil {
		return
	}
	b.value.Trace(func(child *Box) {
		child.crc++
		if child.color != colorBlack {
			scanBlack(child)
		}
	})
}

// collectWhite frees a box found to be unreachable from any external
// root: it releases each outgoing edge through ordinary RC, breaking
// the cycle, and then drops its own payload.
func collectWhite(b *Box, c *Collector, collected *[]*Box) {
	if b.color != colorWhite {
		return
	}
	b.color = colorBlack
	value := b.value
	b.value = nil
	*collected = append(*collected, b)
	if value == nil {
		return
	}
	value.Trace(func(child *Box) {
		collectWhite(child, c, collected)
		child.Release(c)
	})
}
