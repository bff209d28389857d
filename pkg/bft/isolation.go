package bft

import (
	"sync"
	"time"

	"github.com/hypermesh/stoq/pkg/types"
)

// IsolationLevel is a graduated response to repeated or severe
// Byzantine findings.
type IsolationLevel int

const (
	NotIsolated IsolationLevel = iota
	Warning
	Limited
	Temporary
	Permanent
)

func (l IsolationLevel) String() string {
	switch l {
	case NotIsolated:
		return "NotIsolated"
	case Warning:
		return "Warning"
	case Limited:
		return "Limited"
	case Temporary:
		return "Temporary"
	case Permanent:
		return "Permanent"
	default:
		return "Unknown"
	}
}

// IsolationConfig tunes the safety gate and permanent-isolation
// threshold.
type IsolationConfig struct {
	MinHealthyNodes              int
	ByzantineToleranceRatio       float64 // f/n, default 1/3
	PermanentIsolationThreshold   int     // prior isolations before escalating to Permanent
	TemporaryIsolationDuration    time.Duration
}

// DefaultIsolationConfig mirrors the classic f/n <= 1/3 BFT tolerance.
func DefaultIsolationConfig() IsolationConfig {
	return IsolationConfig{
		MinHealthyNodes:            3,
		ByzantineToleranceRatio:    1.0 / 3.0,
		PermanentIsolationThreshold: 3,
		TemporaryIsolationDuration: 10 * time.Minute,
	}
}

type isolationRecord struct {
	level     IsolationLevel
	priorCount int
	expiresAt time.Time
}

// IsolationManager tracks each node's current isolation level,
// escalating by severity and prior-isolation count, gated so isolation
// never drops healthy replicas below the configured minimum or pushes
// the isolated ratio above the Byzantine tolerance.
type IsolationManager struct {
	cfg IsolationConfig

	mu       sync.Mutex
	records  map[types.NodeID]*isolationRecord
	totalNodes func() int
	now      func() time.Time
}

// NewIsolationManager creates a manager using totalNodes to learn the
// current cluster size for the safety gate.
func NewIsolationManager(cfg IsolationConfig, totalNodes func() int) *IsolationManager {
	return &IsolationManager{
		cfg:        cfg,
		records:    make(map[types.NodeID]*isolationRecord),
		totalNodes: totalNodes,
		now:        time.Now,
	}
}

// severityClass maps an anomaly category to the severity class used by
// determineLevel, mirroring the original detector's reason -> severity
// mapping.
func severityClass(category AnomalyCategory) int {
	switch category {
	case VoteManipulation, CoordinationBehavior:
		return 4
	case ConsensusViolation:
		return 3
	case NetworkAnomaly, ContentAnomaly:
		return 2
	case AbnormalFrequency, InconsistentTiming:
		return 1
	default:
		return 2
	}
}

// determineLevel selects a level from prior isolation count and the
// triggering reason's severity class.
func (m *IsolationManager) determineLevel(priorCount int, reasonSeverity int) IsolationLevel {
	if priorCount >= m.cfg.PermanentIsolationThreshold || reasonSeverity >= 5 {
		return Permanent
	}
	if priorCount >= 2 || reasonSeverity >= 3 {
		return Temporary
	}
	if reasonSeverity >= 2 {
		return Limited
	}
	return Warning
}

// canSafelyIsolate reports whether isolating one more node would drop
// healthy replicas below the minimum or exceed Byzantine tolerance.
func (m *IsolationManager) canSafelyIsolate() bool {
	total := m.totalNodes()
	if total == 0 {
		return false
	}
	isolated := 0
	for _, r := range m.records {
		if r.level == Temporary || r.level == Permanent {
			isolated++
		}
	}
	remainingHealthy := total - isolated - 1
	if remainingHealthy < m.cfg.MinHealthyNodes {
		return false
	}
	ratio := float64(isolated+1) / float64(total)
	return ratio <= m.cfg.ByzantineToleranceRatio
}

// Isolate evaluates whether node should be isolated for category and,
// if the safety gate allows it, records the new level. It returns the
// resulting level, which is NotIsolated if the safety gate refused.
func (m *IsolationManager) Isolate(node types.NodeID, category AnomalyCategory) IsolationLevel {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[node]
	if !ok {
		rec = &isolationRecord{}
		m.records[node] = rec
	}

	level := m.determineLevel(rec.priorCount, severityClass(category))
	if level == Temporary || level == Permanent {
		if !m.canSafelyIsolate() {
			return NotIsolated
		}
	}

	rec.level = level
	rec.priorCount++
	if level == Temporary {
		rec.expiresAt = m.now().Add(m.cfg.TemporaryIsolationDuration)
	}
	return level
}

// Level returns node's current isolation level, first expiring it back
// to NotIsolated if a Temporary isolation's window has passed.
func (m *IsolationManager) Level(node types.NodeID) IsolationLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[node]
	if !ok {
		return NotIsolated
	}
	if rec.level == Temporary && m.now().After(rec.expiresAt) {
		rec.level = NotIsolated
	}
	return rec.level
}

// IsIsolated reports whether node is currently Temporary or Permanent
// isolated — the level the consensus engine refuses messages from.
func (m *IsolationManager) IsIsolated(node types.NodeID) bool {
	level := m.Level(node)
	return level == Temporary || level == Permanent
}

// SweepExpired returns NotIsolated any node whose Temporary isolation
// window has passed. Intended to run periodically from a background
// task.
func (m *IsolationManager) SweepExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, rec := range m.records {
		if rec.level == Temporary && now.After(rec.expiresAt) {
			rec.level = NotIsolated
		}
	}
}
