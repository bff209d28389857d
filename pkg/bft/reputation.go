package bft

import (
	"sync"
	"time"

	"github.com/hypermesh/stoq/pkg/types"
)

// Reputation tuning defaults.
const (
	initialReputation  = 0.8
	anchorReputation   = 0.8
	decayRatePerHour   = 0.01
	recoveryMultiplier = 1.5
	quarantineThreshold = 0.3
	isolationThreshold  = 0.1
	consensusValidators = 5
	consensusThreshold  = 2.0 / 3.0
)

// EventKind is the category of a reputation-affecting event.
type EventKind int

const (
	EventByzantineBehavior EventKind = iota
	EventGoodParticipation
	EventRecoveryBehavior
)

// ReputationEvent carries a severity/quality/improvement magnitude in
// [0,1] alongside its kind; impact() converts it to a signed score
// delta.
type ReputationEvent struct {
	Kind      EventKind
	Magnitude float64
}

func (e ReputationEvent) impact() float64 {
	switch e.Kind {
	case EventByzantineBehavior:
		return -0.5 * e.Magnitude
	case EventGoodParticipation:
		return 0.1 * e.Magnitude
	case EventRecoveryBehavior:
		return 0.3 * e.Magnitude * recoveryMultiplier
	default:
		return 0
	}
}

type reputationState struct {
	score      float64
	lastDecay  time.Time
}

// ReputationTracker holds per-node reputation scores, decaying them
// toward the anchor over time and applying signed event impacts.
type ReputationTracker struct {
	mu    sync.Mutex
	nodes map[types.NodeID]*reputationState
	now   func() time.Time
}

// NewReputationTracker creates an empty tracker using the real clock.
func NewReputationTracker() *ReputationTracker {
	return &ReputationTracker{nodes: make(map[types.NodeID]*reputationState), now: time.Now}
}

func (t *ReputationTracker) stateFor(node types.NodeID) *reputationState {
	s, ok := t.nodes[node]
	if !ok {
		s = &reputationState{score: initialReputation, lastDecay: t.now()}
		t.nodes[node] = s
	}
	return s
}

// Score returns node's current reputation in [0,1], applying any decay
// owed since the last observation first.
func (t *ReputationTracker) Score(node types.NodeID) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateFor(node)
	t.decayLocked(s)
	return s.score
}

// Apply records event's impact against node, clamping the result to
// [0,1].
func (t *ReputationTracker) Apply(node types.NodeID, event ReputationEvent) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateFor(node)
	t.decayLocked(s)

	s.score += event.impact()
	if s.score > 1 {
		s.score = 1
	}
	if s.score < 0 {
		s.score = 0
	}
	return s.score
}

// decayLocked drifts score toward the anchor at the configured hourly
// rate, scaled by elapsed time; recovery (score below anchor moving up)
// is applied at half that rate (asymmetric decay).
// Called with mu held.
func (t *ReputationTracker) decayLocked(s *reputationState) {
	now := t.now()
	elapsedHours := now.Sub(s.lastDecay).Hours()
	if elapsedHours <= 0 {
		return
	}
	s.lastDecay = now

	rate := decayRatePerHour
	delta := anchorReputation - s.score
	if delta > 0 {
		rate /= 2
	}
	s.score += delta * rate * elapsedHours
	if s.score > 1 {
		s.score = 1
	}
	if s.score < 0 {
		s.score = 0
	}
}

// IsQuarantined reports whether node's score has fallen to or below
// the quarantine threshold.
func (t *ReputationTracker) IsQuarantined(node types.NodeID) bool {
	return t.Score(node) <= quarantineThreshold
}

// IsIsolationCandidate reports whether node's score has fallen to or
// below the isolation threshold.
func (t *ReputationTracker) IsIsolationCandidate(node types.NodeID) bool {
	return t.Score(node) <= isolationThreshold
}
