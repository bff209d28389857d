package orchestrator

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/types"
)

func singleNodeConfig(t *testing.T, self types.NodeID) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Self = self
	cfg.BindAddr = net.IPv6loopback
	cfg.Port = 0
	cfg.DataDir = t.TempDir()
	cfg.Peers = map[types.NodeID]PeerAddr{self: {Host: "::1", Port: 0}}
	return cfg
}

func TestNewAssemblesAndStopsCleanly(t *testing.T) {
	n, err := New(singleNodeConfig(t, "node-a"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()
	n.Stop()
}

func TestClusterStatusReportsSingleNode(t *testing.T) {
	n, err := New(singleNodeConfig(t, "node-a"))
	require.NoError(t, err)
	defer n.Stop()

	status := n.ClusterStatus()
	require.Equal(t, types.NodeID("node-a"), status.NodeID)
	require.Equal(t, 1, status.PeerCount)
	require.Equal(t, 0, status.Shards)
}
