package bft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectRecoveryStrategy(t *testing.T) {
	cases := []struct {
		name string
		ctx  RecoveryContext
		want RecoveryStrategy
	}{
		{"severe fault", RecoveryContext{FaultSeverity: 0.9}, EmergencyConsensus},
		{"many byzantine nodes", RecoveryContext{ByzantineNodeCount: 11}, EmergencyConsensus},
		{"degraded network", RecoveryContext{FaultSeverity: 0.2, NetworkHealth: 0.3}, NetworkHeal},
		{"moderately severe fault", RecoveryContext{FaultSeverity: 0.7, NetworkHealth: 1}, StateRollback},
		{"several byzantine nodes", RecoveryContext{FaultSeverity: 0.1, ByzantineNodeCount: 6, NetworkHealth: 1}, NodeReplacement},
		{"mild fault", RecoveryContext{FaultSeverity: 0.5, NetworkHealth: 1}, StateRepair},
		{"minor fault", RecoveryContext{FaultSeverity: 0.1, NetworkHealth: 1}, IsolateAndReform},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SelectRecoveryStrategy(tc.ctx))
		})
	}
}
