package health

import (
	"context"
	"sync"
	"time"
)

// State is a three-level health classification for a routable
// destination, as opposed to Status's underlying binary healthy/
// unhealthy: a destination that is failing checks but has not yet
// crossed the failure threshold is Degraded rather than immediately
// Unhealthy, so callers do not discard a destination that might
// recover.
type State int

const (
	Unhealthy State = iota
	Degraded
	Healthy
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	default:
		return "unhealthy"
	}
}

// DestinationTracker runs a Checker on an interval against one
// destination and classifies it into State, giving a Degraded reading
// for the retry window before Unhealthy is declared.
type DestinationTracker struct {
	checker Checker
	cfg     Config

	mu     sync.RWMutex
	status *Status
	state  State
}

// NewDestinationTracker wraps checker with the three-state classification.
func NewDestinationTracker(checker Checker, cfg Config) *DestinationTracker {
	return &DestinationTracker{
		checker: checker,
		cfg:     cfg,
		status:  NewStatus(),
		state:   Degraded,
	}
}

// Run blocks, probing on cfg.Interval until ctx is done.
func (d *DestinationTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Probe(ctx)
		}
	}
}

// Probe runs a single check immediately and updates the classification,
// for callers that don't want to wait on Run's ticker (tests, or an
// on-demand re-check before a forwarding decision).
func (d *DestinationTracker) Probe(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	result := d.checker.Check(checkCtx)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.status.Update(result, d.cfg)
	d.state = classify(d.status, d.cfg)
}

// State returns the current classification.
func (d *DestinationTracker) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// classify derives a State from a Status using the same retry-threshold
// the Status already tracks: a single success after any failures
// restores full health, a single failure degrades rather than
// condemns, and only reaching the configured Retries failures declares
// the destination unhealthy.
func classify(s *Status, cfg Config) State {
	if s.ConsecutiveFailures >= cfg.Retries {
		return Unhealthy
	}
	if s.ConsecutiveFailures > 0 {
		return Degraded
	}
	return Healthy
}
