package shard

import (
	"github.com/hypermesh/stoq/pkg/types"
)

// MitigationStrategy is one hot-shard response, tried in the
// configured order until one succeeds.
type MitigationStrategy int

const (
	MitigationSplit MitigationStrategy = iota
	MitigationReplicate
	MitigationCache
)

func (s MitigationStrategy) String() string {
	switch s {
	case MitigationSplit:
		return "Split"
	case MitigationReplicate:
		return "Replicate"
	case MitigationCache:
		return "Cache"
	default:
		return "Unknown"
	}
}

// HotShardConfig holds the per-metric thresholds above which a shard
// is flagged hot, and the mitigation order to try.
type HotShardConfig struct {
	CPUThreshold     float64
	MemoryThreshold  float64
	RequestRateThreshold float64
	Strategies       []MitigationStrategy
}

// DefaultHotShardConfig holds the default mitigation
// order.
func DefaultHotShardConfig() HotShardConfig {
	return HotShardConfig{
		CPUThreshold:         0.8,
		MemoryThreshold:      0.8,
		RequestRateThreshold: 1000,
		Strategies:           []MitigationStrategy{MitigationSplit, MitigationReplicate, MitigationCache},
	}
}

// Detector flags shards exceeding any configured threshold.
type Detector struct {
	cfg HotShardConfig
}

// NewDetector builds a detector using cfg.
func NewDetector(cfg HotShardConfig) *Detector {
	return &Detector{cfg: cfg}
}

// DetectHot returns the IDs of every Active shard in shards whose
// stats exceed any of the CPU/memory/request-rate thresholds.
func (d *Detector) DetectHot(shards []*Shard) []types.ShardID {
	var hot []types.ShardID
	for _, s := range shards {
		if s.Status != types.ShardActive {
			continue
		}
		if s.Stats.CPUUsage > d.cfg.CPUThreshold ||
			s.Stats.MemoryUsage > d.cfg.MemoryThreshold ||
			s.Stats.RequestRate > d.cfg.RequestRateThreshold {
			hot = append(hot, s.ID)
		}
	}
	return hot
}

// NextMitigation returns the first strategy in the configured order
// that tried has not yet been attempted for this hot shard, or ok=false
// once every strategy has been tried.
func (d *Detector) NextMitigation(tried []MitigationStrategy) (MitigationStrategy, bool) {
	triedSet := make(map[MitigationStrategy]bool, len(tried))
	for _, t := range tried {
		triedSet[t] = true
	}
	for _, s := range d.cfg.Strategies {
		if !triedSet[s] {
			return s, true
		}
	}
	return 0, false
}
