package bft

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/types"
)

func TestMonitorRewardsCleanAppendEntries(t *testing.T) {
	m := NewMonitor(func() int { return 5 }, nil)
	node := types.NodeID("leader")

	for i := 0; i < 10; i++ {
		m.Observe(node, consensus.Message{
			From:          node,
			AppendEntries: &consensus.AppendEntries{Term: 1, LeaderID: node},
		})
	}

	require.False(t, m.IsIsolated(node))
	require.GreaterOrEqual(t, m.Reputation(node), initialReputation)
}

func TestMonitorFlagsKnownBadPattern(t *testing.T) {
	bad := quantizePattern(BehaviorSample{MessageFreq: 1, Latency: 0, Participation: 1, NetworkActivity: 1})
	m := NewMonitor(func() int { return 5 }, []string{bad})
	node := types.NodeID("suspect")

	for i := 0; i < 3; i++ {
		m.Observe(node, consensus.Message{
			From:          node,
			AppendEntries: &consensus.AppendEntries{Term: 1, LeaderID: node, Entries: make([]consensus.LogEntry, 10)},
		})
	}

	require.Less(t, m.Reputation(node), initialReputation)
}

func TestMonitorImplementsConsensusDetector(t *testing.T) {
	var _ consensus.Detector = NewMonitor(func() int { return 3 }, nil)
}
