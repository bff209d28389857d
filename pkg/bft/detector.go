package bft

import (
	"sync"
	"time"

	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/types"
)

// detector is the minimal interface each of the three detection
// strategies implements over a node's observed sample window.
type detector interface {
	Detect(samples []BehaviorSample) []Anomaly
}

// Monitor combines the statistical, pattern and ML-lite detectors with
// a reputation tracker and an isolation manager into a single
// consensus.Detector: every inbound message is turned into a behavior
// sample, scored by all three detectors, and folded into the sending
// node's reputation before the engine is allowed to act on it.
type Monitor struct {
	mu       sync.Mutex
	windows  map[types.NodeID]*sampleWindow
	detectors []detector
	reputation *ReputationTracker
	isolation  *IsolationManager
	now        func() time.Time
}

// NewMonitor builds a Monitor whose isolation safety gate consults
// totalNodes for the current cluster size.
func NewMonitor(totalNodes func() int, knownBadPatterns []string) *Monitor {
	return &Monitor{
		windows: make(map[types.NodeID]*sampleWindow),
		detectors: []detector{
			statisticalDetector{},
			newPatternDetector(knownBadPatterns),
			newMLLiteDetector(),
		},
		reputation: NewReputationTracker(),
		isolation:  NewIsolationManager(DefaultIsolationConfig(), totalNodes),
		now:        time.Now,
	}
}

var _ consensus.Detector = (*Monitor)(nil)

// Observe folds msg into from's behavior window, runs every detector
// over the updated window, and applies the resulting reputation and
// isolation consequences. It never blocks or returns an error — a
// detector that cannot yet form an opinion (too few samples) simply
// contributes nothing this round.
func (m *Monitor) Observe(from types.NodeID, msg consensus.Message) {
	sample := sampleFromMessage(msg, m.now())

	m.mu.Lock()
	w, ok := m.windows[from]
	if !ok {
		w = newSampleWindow(defaultWindowSize)
		m.windows[from] = w
	}
	w.add(sample)
	samples := w.all()
	m.mu.Unlock()

	var worst Anomaly
	found := false
	for _, d := range m.detectors {
		for _, a := range d.Detect(samples) {
			if !found || a.Score > worst.Score {
				worst = a
				found = true
			}
		}
	}

	if !found {
		m.reputation.Apply(from, ReputationEvent{Kind: EventGoodParticipation, Magnitude: sample.Participation})
		return
	}

	severity := worst.Score
	if severity > 1 {
		severity = 1
	}
	m.reputation.Apply(from, ReputationEvent{Kind: EventByzantineBehavior, Magnitude: severity})

	if m.reputation.IsIsolationCandidate(from) {
		m.isolation.Isolate(from, worst.Category)
	}
}

// IsIsolated reports whether node is currently Temporary or Permanent
// isolated.
func (m *Monitor) IsIsolated(node types.NodeID) bool {
	return m.isolation.IsIsolated(node)
}

// Reputation exposes the underlying tracker's score for diagnostics
// and for the recovery-strategy selector's network-health estimate.
func (m *Monitor) Reputation(node types.NodeID) float64 {
	return m.reputation.Score(node)
}

// RecordRecovery credits node for observed recovery behavior (e.g.
// rejoining cleanly after isolation), applying the recovery-event
// impact rather than the default good-participation credit.
func (m *Monitor) RecordRecovery(node types.NodeID, quality float64) {
	m.reputation.Apply(node, ReputationEvent{Kind: EventRecoveryBehavior, Magnitude: quality})
}

// sampleFromMessage derives a BehaviorSample from a single consensus
// message. Frequency and latency are necessarily coarse for a
// single-message view; they sharpen as a node's window fills in.
func sampleFromMessage(msg consensus.Message, now time.Time) BehaviorSample {
	s := BehaviorSample{Timestamp: now, MessageFreq: 1, Participation: 1, SignatureValid: true}

	switch {
	case msg.VoteRequest != nil:
		s.Size = float64(len(msg.From))
		s.VoteConsistency = 1
	case msg.VoteResponse != nil:
		s.VoteConsistency = boolToFloat(msg.VoteResponse.Granted)
	case msg.AppendEntries != nil:
		s.Size = float64(len(msg.AppendEntries.Entries))
		s.NetworkActivity = 1
		s.VoteConsistency = 1
	case msg.AppendEntriesResponse != nil:
		s.VoteConsistency = boolToFloat(msg.AppendEntriesResponse.Success)
	case msg.ByzantineReport != nil:
		s.Size = float64(len(msg.ByzantineReport.Evidence))
		s.ResourceUsage = 1
	}
	return s
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
