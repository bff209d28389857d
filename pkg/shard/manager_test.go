package shard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/types"
)

func newTestManager() (*Manager, *ConsistentHashRing) {
	ring := NewConsistentHashRing(types.HashXXHash, 16)
	ring.AddNode("n1", 1)
	mgr := NewManager("n1", ring)
	return mgr, ring
}

func TestRouteFindsContainingShard(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.Register(&Shard{
		ID: "s1", KeyRange: types.KeyRange{Lo: []byte("a"), Hi: []byte("m")},
		Primary: "n1", Status: types.ShardActive,
	})
	mgr.Register(&Shard{
		ID: "s2", KeyRange: types.KeyRange{Lo: []byte("m"), Hi: nil},
		Primary: "n1", Status: types.ShardActive,
	})

	id, err := mgr.Route([]byte("apple"))
	require.NoError(t, err)
	require.Equal(t, types.ShardID("s1"), id)

	id, err = mgr.Route([]byte("zebra"))
	require.NoError(t, err)
	require.Equal(t, types.ShardID("s2"), id)
}

func TestRouteRefusesInactiveShard(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.Register(&Shard{
		ID: "s1", KeyRange: types.KeyRange{Lo: []byte("a"), Hi: nil},
		Primary: "n1", Status: types.ShardInitializing,
	})

	_, err := mgr.Route([]byte("apple"))
	require.ErrorIs(t, err, ErrShardUnavailable)
}

func TestSplitProducesTwoActiveChildren(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.Register(&Shard{
		ID: "s1", KeyRange: types.KeyRange{Lo: []byte("a"), Hi: []byte("z")},
		Primary: "n1", Status: types.ShardActive,
	})

	var migrated []types.ShardID
	s1, s2, err := mgr.Split("s1", []byte("m"), "s1a", "s1b", func(src, dst *Shard) error {
		migrated = append(migrated, dst.ID)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, types.ShardActive, s1.Status)
	require.Equal(t, types.ShardActive, s2.Status)
	require.Len(t, migrated, 2)

	orig, ok := mgr.Get("s1")
	require.True(t, ok)
	require.Equal(t, types.ShardDecommission, orig.Status)
}

func TestSplitRejectsKeyOutsideRange(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.Register(&Shard{
		ID: "s1", KeyRange: types.KeyRange{Lo: []byte("a"), Hi: []byte("m")},
		Primary: "n1", Status: types.ShardActive,
	})

	_, _, err := mgr.Split("s1", []byte("z"), "s1a", "s1b", nil)
	require.ErrorIs(t, err, ErrInvalidSplitKey)
}

func TestMergeRequiresAdjacency(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.Register(&Shard{ID: "s1", KeyRange: types.KeyRange{Lo: []byte("a"), Hi: []byte("m")}, Primary: "n1", Replicas: []types.NodeID{"n1"}, Status: types.ShardActive})
	mgr.Register(&Shard{ID: "s2", KeyRange: types.KeyRange{Lo: []byte("p"), Hi: []byte("z")}, Primary: "n1", Replicas: []types.NodeID{"n1"}, Status: types.ShardActive})

	_, err := mgr.Merge("s1", "s2", "merged", nil)
	require.ErrorIs(t, err, ErrNotAdjacent)
}

func TestMergeProducesActiveUnion(t *testing.T) {
	mgr, _ := newTestManager()
	mgr.Register(&Shard{ID: "s1", KeyRange: types.KeyRange{Lo: []byte("a"), Hi: []byte("m")}, Primary: "n1", Replicas: []types.NodeID{"n1"}, Status: types.ShardActive})
	mgr.Register(&Shard{ID: "s2", KeyRange: types.KeyRange{Lo: []byte("m"), Hi: []byte("z")}, Primary: "n1", Replicas: []types.NodeID{"n1"}, Status: types.ShardActive})

	merged, err := mgr.Merge("s1", "s2", "merged", func(a, b, dst *Shard) error { return nil })
	require.NoError(t, err)
	require.Equal(t, types.ShardActive, merged.Status)
	require.Equal(t, []byte("a"), merged.KeyRange.Lo)
	require.Equal(t, []byte("z"), merged.KeyRange.Hi)
}
