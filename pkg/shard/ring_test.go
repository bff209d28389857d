package shard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/types"
)

func TestRingRoutesConsistently(t *testing.T) {
	r := NewConsistentHashRing(types.HashXXHash, 16)
	r.AddNode("n1", 1)
	r.AddNode("n2", 1)
	r.AddNode("n3", 1)

	node, ok := r.NodeFor("some-key")
	require.True(t, ok)

	for i := 0; i < 10; i++ {
		again, ok := r.NodeFor("some-key")
		require.True(t, ok)
		require.Equal(t, node, again)
	}
}

func TestRingDistributesAcrossNodes(t *testing.T) {
	r := NewConsistentHashRing(types.HashSHA256, 32)
	r.AddNode("n1", 1)
	r.AddNode("n2", 1)
	r.AddNode("n3", 1)

	seen := make(map[types.NodeID]bool)
	for i := 0; i < 200; i++ {
		node, ok := r.NodeFor(string(rune('a' + i%26)))
		require.True(t, ok)
		seen[node] = true
	}
	require.Greater(t, len(seen), 1, "200 distinct-ish keys across 3 nodes should not all land on one node")
}

func TestRingRemoveNode(t *testing.T) {
	r := NewConsistentHashRing(types.HashBLAKE3, 8)
	r.AddNode("n1", 1)
	r.AddNode("n2", 1)
	r.RemoveNode("n1")

	node, ok := r.NodeFor("x")
	require.True(t, ok)
	require.Equal(t, types.NodeID("n2"), node)
}

func TestRingEmptyHasNoOwner(t *testing.T) {
	r := NewConsistentHashRing(types.HashXXHash, 8)
	_, ok := r.NodeFor("x")
	require.False(t, ok)
}
