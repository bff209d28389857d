package shard

import (
	"github.com/hypermesh/stoq/pkg/types"
)

// RebalanceConfig tunes when imbalance is worth acting on.
type RebalanceConfig struct {
	Threshold   float64 // trigger a rebalance when (max-min) > Threshold*mean
	CPUWeight   float64
	MemWeight   float64
	RateWeight  float64
}

// DefaultRebalanceConfig mirrors the 3-factor weighting (CPU + memory
// + request rate).
func DefaultRebalanceConfig() RebalanceConfig {
	return RebalanceConfig{Threshold: 0.25, CPUWeight: 0.4, MemWeight: 0.3, RateWeight: 0.3}
}

// Move is one planned shard relocation.
type Move struct {
	Shard  types.ShardID
	Target types.NodeID
}

// shardLoad computes a shard's weighted contribution to its primary's
// load.
func (c RebalanceConfig) shardLoad(s *Shard) float64 {
	return c.CPUWeight*s.Stats.CPUUsage + c.MemWeight*s.Stats.MemoryUsage + c.RateWeight*s.Stats.RequestRate
}

// PlanRebalance computes each node's current load from shards, and if
// the spread between the most and least loaded node exceeds
// Threshold*mean, returns a single (shard, target) move: the busiest
// node's lightest shard, to the least loaded node. One call does not
// plan further moves, however large the gap.
func PlanRebalance(cfg RebalanceConfig, shards []*Shard) []Move {
	load := make(map[types.NodeID]float64)
	byNode := make(map[types.NodeID][]*Shard)
	for _, s := range shards {
		if s.Status != types.ShardActive {
			continue
		}
		load[s.Primary] += cfg.shardLoad(s)
		byNode[s.Primary] = append(byNode[s.Primary], s)
	}
	if len(load) < 2 {
		return nil
	}

	var maxNode, minNode types.NodeID
	maxLoad, minLoad := -1.0, -1.0
	var sum float64
	for node, l := range load {
		sum += l
		if maxLoad < 0 || l > maxLoad {
			maxLoad, maxNode = l, node
		}
		if minLoad < 0 || l < minLoad {
			minLoad, minNode = l, node
		}
	}
	mean := sum / float64(len(load))
	if mean == 0 || (maxLoad-minLoad) <= cfg.Threshold*mean {
		return nil
	}

	candidates := byNode[maxNode]
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	bestLoad := cfg.shardLoad(best)
	for _, s := range candidates[1:] {
		if l := cfg.shardLoad(s); l < bestLoad {
			best, bestLoad = s, l
		}
	}
	return []Move{{Shard: best.ID, Target: minNode}}
}
