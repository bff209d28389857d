package shard

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"

	"github.com/hypermesh/stoq/pkg/types"
)

// ConsistentHashRing maps keys to nodes by consistent hashing:
// virtualNodes copies of each physical node are placed on the ring,
// and a key routes to the first node at or after hash(key).
type ConsistentHashRing struct {
	mu sync.RWMutex

	hashFn       types.HashAlgorithm
	virtualNodes int

	hashes      []uint64 // sorted
	owners      map[uint64]types.NodeID
	weights     map[types.NodeID]float64
	totalWeight float64
}

// NewConsistentHashRing builds an empty ring using hashFn, placing
// virtualNodesPerNode copies of each node added.
func NewConsistentHashRing(hashFn types.HashAlgorithm, virtualNodesPerNode int) *ConsistentHashRing {
	return &ConsistentHashRing{
		hashFn:       hashFn,
		virtualNodes: virtualNodesPerNode,
		owners:       make(map[uint64]types.NodeID),
		weights:      make(map[types.NodeID]float64),
	}
}

func (r *ConsistentHashRing) computeHash(key string) uint64 {
	switch r.hashFn {
	case types.HashBLAKE3:
		sum := blake3.Sum256([]byte(key))
		return binary.BigEndian.Uint64(sum[:8])
	case types.HashXXHash:
		return xxhash.Sum64String(key)
	default:
		sum := sha256.Sum256([]byte(key))
		return binary.BigEndian.Uint64(sum[:8])
	}
}

// AddNode places virtualNodes copies of node on the ring, weighted by
// weight (node density on the ring itself is uniform;
// weight is tracked for rebalancing load targets).
func (r *ConsistentHashRing) AddNode(node types.NodeID, weight float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < r.virtualNodes; i++ {
		vkey := fmt.Sprintf("%s:%d", node, i)
		h := r.computeHash(vkey)
		if _, exists := r.owners[h]; !exists {
			r.hashes = append(r.hashes, h)
		}
		r.owners[h] = node
	}
	sort.Slice(r.hashes, func(i, j int) bool { return r.hashes[i] < r.hashes[j] })
	r.weights[node] = weight
	r.totalWeight += weight
}

// RemoveNode takes every virtual copy of node off the ring.
func (r *ConsistentHashRing) RemoveNode(node types.NodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.hashes[:0]
	for _, h := range r.hashes {
		if r.owners[h] == node {
			delete(r.owners, h)
			continue
		}
		kept = append(kept, h)
	}
	r.hashes = kept
	r.totalWeight -= r.weights[node]
	delete(r.weights, node)
}

// NodeFor returns the node owning key: the first ring position at or
// after hash(key), wrapping around to the first position if key hashes
// past the last one.
func (r *ConsistentHashRing) NodeFor(key string) (types.NodeID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.hashes) == 0 {
		return "", false
	}

	h := r.computeHash(key)
	idx := sort.Search(len(r.hashes), func(i int) bool { return r.hashes[i] >= h })
	if idx == len(r.hashes) {
		idx = 0
	}
	return r.owners[r.hashes[idx]], true
}

// Weight returns node's configured ring weight.
func (r *ConsistentHashRing) Weight(node types.NodeID) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights[node]
}
