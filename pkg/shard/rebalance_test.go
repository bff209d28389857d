package shard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/types"
)

func TestPlanRebalanceMovesFromBusiestToQuietest(t *testing.T) {
	cfg := DefaultRebalanceConfig()
	shards := []*Shard{
		{ID: "s1", Primary: "busy", Status: types.ShardActive, Stats: Stats{CPUUsage: 0.9, MemoryUsage: 0.9, RequestRate: 500}},
		{ID: "s2", Primary: "busy", Status: types.ShardActive, Stats: Stats{CPUUsage: 0.1, MemoryUsage: 0.1, RequestRate: 10}},
		{ID: "s3", Primary: "quiet", Status: types.ShardActive, Stats: Stats{CPUUsage: 0.05, MemoryUsage: 0.05, RequestRate: 5}},
	}

	moves := PlanRebalance(cfg, shards)
	require.Len(t, moves, 1)
	require.Equal(t, types.NodeID("quiet"), moves[0].Target)
	require.Equal(t, types.ShardID("s2"), moves[0].Shard, "the lighter of the busy node's shards should move, not the heaviest")
}

func TestPlanRebalanceNoOpWhenBalanced(t *testing.T) {
	cfg := DefaultRebalanceConfig()
	shards := []*Shard{
		{ID: "s1", Primary: "n1", Status: types.ShardActive, Stats: Stats{CPUUsage: 0.5, MemoryUsage: 0.5, RequestRate: 100}},
		{ID: "s2", Primary: "n2", Status: types.ShardActive, Stats: Stats{CPUUsage: 0.5, MemoryUsage: 0.5, RequestRate: 100}},
	}
	require.Nil(t, PlanRebalance(cfg, shards))
}
