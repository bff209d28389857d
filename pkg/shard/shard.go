package shard

import (
	"time"

	"github.com/hypermesh/stoq/pkg/types"
)

// Stats is a shard's latest observed load, refreshed by the owning
// node and consulted by both the hot-shard detector and the
// rebalancer.
type Stats struct {
	KeyCount        uint64
	SizeBytes       uint64
	RequestRate     float64
	CPUUsage        float64
	MemoryUsage     float64
	AvgResponseUs   uint64
	LastUpdated     time.Time
}

// Shard is one contiguous key-range owner.
type Shard struct {
	ID           types.ShardID
	KeyRange     types.KeyRange
	Replicas     []types.NodeID
	Primary      types.NodeID
	Status       types.ShardStatus
	Stats        Stats
	CreatedAt    time.Time
	LastModified time.Time
}

func (s *Shard) touch(now time.Time) { s.LastModified = now }
