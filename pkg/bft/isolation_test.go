package bft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/types"
)

func TestIsolateEscalatesWithPriorCount(t *testing.T) {
	m := NewIsolationManager(DefaultIsolationConfig(), func() int { return 10 })
	node := types.NodeID("n1")

	require.Equal(t, Warning, m.Isolate(node, AbnormalFrequency))
	require.Equal(t, Warning, m.Isolate(node, AbnormalFrequency))
	require.Equal(t, Temporary, m.Isolate(node, AbnormalFrequency))
	require.Equal(t, Permanent, m.Isolate(node, AbnormalFrequency))
}

func TestIsolateHighSeverityJumpsStraightToTemporary(t *testing.T) {
	m := NewIsolationManager(DefaultIsolationConfig(), func() int { return 10 })
	node := types.NodeID("n1")

	require.Equal(t, Temporary, m.Isolate(node, VoteManipulation))
}

func TestCanSafelyIsolateRefusesBelowMinHealthy(t *testing.T) {
	cfg := DefaultIsolationConfig()
	cfg.MinHealthyNodes = 3
	m := NewIsolationManager(cfg, func() int { return 4 })

	node := types.NodeID("n1")
	m.Isolate(node, VoteManipulation) // Temporary, 1 isolated, 3 healthy remain: ok

	other := types.NodeID("n2")
	level := m.Isolate(other, VoteManipulation)
	require.Equal(t, NotIsolated, level, "isolating a second node would drop healthy count below minimum")
}

func TestTemporaryIsolationExpires(t *testing.T) {
	m := NewIsolationManager(DefaultIsolationConfig(), func() int { return 10 })
	fixed := time.Now()
	m.now = func() time.Time { return fixed }

	node := types.NodeID("n1")
	m.Isolate(node, VoteManipulation)
	require.True(t, m.IsIsolated(node))

	fixed = fixed.Add(11 * time.Minute)
	require.False(t, m.IsIsolated(node))
}

func TestSweepExpiredClearsStaleTemporary(t *testing.T) {
	m := NewIsolationManager(DefaultIsolationConfig(), func() int { return 10 })
	fixed := time.Now()
	m.now = func() time.Time { return fixed }

	node := types.NodeID("n1")
	m.Isolate(node, VoteManipulation)

	fixed = fixed.Add(11 * time.Minute)
	m.SweepExpired()
	require.Equal(t, NotIsolated, m.Level(node))
}
