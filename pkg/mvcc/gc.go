package mvcc

import (
	"context"
	"sync"
	"time"

	"github.com/hypermesh/stoq/pkg/log"
)

// ReadTsTracker records the read_ts of every currently active
// transaction so the garbage collector never trims a version a live
// transaction might still read.
type ReadTsTracker struct {
	mu     sync.Mutex
	active map[uint64]int // read_ts -> count of transactions holding it
}

// NewReadTsTracker creates an empty tracker.
func NewReadTsTracker() *ReadTsTracker {
	return &ReadTsTracker{active: make(map[uint64]int)}
}

// Acquire registers readTs as in use by one more transaction.
func (t *ReadTsTracker) Acquire(readTs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[readTs]++
}

// Release removes one transaction's hold on readTs.
func (t *ReadTsTracker) Release(readTs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active[readTs] <= 1 {
		delete(t.active, readTs)
		return
	}
	t.active[readTs]--
}

// Oldest returns the smallest currently-held read_ts, and ok=false if
// no transaction is active.
func (t *ReadTsTracker) Oldest() (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var min uint64
	found := false
	for ts := range t.active {
		if !found || ts < min {
			min = ts
			found = true
		}
	}
	return min, found
}

// GC periodically trims versions the GC watermark has passed, where
// the watermark trails the oldest active read_ts by lag.
type GC struct {
	store   *Store
	reads   *ReadTsTracker
	oracle  *TimestampOracle
	lag     uint64
	interval time.Duration
}

// NewGC builds a collector for store, consulting reads for the oldest
// live read_ts and oracle as a fallback upper bound when nothing is
// active.
func NewGC(store *Store, reads *ReadTsTracker, oracle *TimestampOracle, lag uint64, interval time.Duration) *GC {
	return &GC{store: store, reads: reads, oracle: oracle, lag: lag, interval: interval}
}

// Run sweeps every interval until ctx is done.
func (g *GC) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweepOnce()
		}
	}
}

func (g *GC) sweepOnce() {
	watermark, ok := g.reads.Oldest()
	if !ok {
		watermark = g.oracle.counter.Load()
	}
	if watermark < g.lag {
		return
	}
	watermark -= g.lag

	if err := g.store.TrimBefore(watermark); err != nil {
		log.Logger.Error().Err(err).Str("component", "mvcc").Msg("gc sweep failed")
	}
}
