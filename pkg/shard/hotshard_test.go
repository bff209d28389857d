package shard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/types"
)

func TestDetectHotFlagsOverThreshold(t *testing.T) {
	d := NewDetector(DefaultHotShardConfig())
	shards := []*Shard{
		{ID: "s1", Status: types.ShardActive, Stats: Stats{CPUUsage: 0.95}},
		{ID: "s2", Status: types.ShardActive, Stats: Stats{CPUUsage: 0.1}},
		{ID: "s3", Status: types.ShardInitializing, Stats: Stats{CPUUsage: 0.99}},
	}
	hot := d.DetectHot(shards)
	require.Equal(t, []types.ShardID{"s1"}, hot, "only the Active over-threshold shard should be flagged")
}

func TestNextMitigationFollowsConfiguredOrder(t *testing.T) {
	d := NewDetector(DefaultHotShardConfig())

	strat, ok := d.NextMitigation(nil)
	require.True(t, ok)
	require.Equal(t, MitigationSplit, strat)

	strat, ok = d.NextMitigation([]MitigationStrategy{MitigationSplit})
	require.True(t, ok)
	require.Equal(t, MitigationReplicate, strat)

	_, ok = d.NextMitigation([]MitigationStrategy{MitigationSplit, MitigationReplicate, MitigationCache})
	require.False(t, ok)
}
