package orchestrator

import (
	"net"
	"time"

	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/health"
	"github.com/hypermesh/stoq/pkg/shard"
	"github.com/hypermesh/stoq/pkg/types"
)

// PeerAddr is where a cluster member's transport endpoint listens.
type PeerAddr struct {
	Host string
	Port int
}

// Config assembles one Node. Peers must include every member of the
// cluster, self included (self's entry makes it a consensus member and
// lets LeaderAddr resolve it; the local endpoint binds to BindAddr and
// Port).
type Config struct {
	Self     types.NodeID
	BindAddr net.IP
	Port     int
	DataDir  string

	Peers map[types.NodeID]PeerAddr

	NetworkID [16]byte

	ConsensusConfig Config_Consensus
	GCInterval      time.Duration
	GCLag           uint64

	HashAlgorithm       types.HashAlgorithm
	VirtualNodesPerNode int

	HotShardConfig shard.HotShardConfig

	KnownBadPatterns []string

	DestinationCheck health.Config
}

// Config_Consensus re-exports consensus.Config under the assembly
// config so callers configure a Node without importing pkg/consensus
// directly for this one field.
type Config_Consensus = consensus.Config

// DefaultConfig fills in the timer, GC, hashing and health defaults
// used across the test cluster and cmd/stoqd's default flags.
func DefaultConfig() Config {
	return Config{
		ConsensusConfig:     consensus.DefaultConfig(),
		GCInterval:          30 * time.Second,
		GCLag:               1000,
		HashAlgorithm:       types.HashXXHash,
		VirtualNodesPerNode: 128,
		HotShardConfig:      shard.DefaultHotShardConfig(),
		DestinationCheck:    health.DefaultConfig(),
	}
}
