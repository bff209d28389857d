package bus

import (
	"time"

	"github.com/hypermesh/stoq/pkg/types"
)

// Kind identifies the shape of an Event's payload.
type Kind string

const (
	KindLeaderChanged   Kind = "consensus.leader_changed"
	KindTermAdvanced    Kind = "consensus.term_advanced"
	KindShardSplit      Kind = "shard.split"
	KindShardMerged     Kind = "shard.merged"
	KindShardMigrated   Kind = "shard.migrated"
	KindHotShard        Kind = "shard.hot"
	KindNodeIsolated    Kind = "bft.node_isolated"
	KindNodeRecovered   Kind = "bft.node_recovered"
	KindProxyAllocated  Kind = "proxy.allocated"
	KindProxyReleased   Kind = "proxy.released"
	KindDestinationDown Kind = "proxy.destination_down"
)

// Event is the single envelope type carried on the node's Bus. Handlers
// switch on Kind and read the field(s) relevant to it; unused fields on
// a given Kind are left zero.
type Event struct {
	Kind      Kind
	Timestamp time.Time

	Node types.NodeID
	Term types.Term

	Shard    types.ShardID
	ShardTwo types.ShardID

	Address types.ProxyAddress
	Reason  string
}

// NodeBus is a process-wide bus for node lifecycle events. Components
// that want an isolated bus instead of sharing this one can call
// New[Event] directly.
var NodeBus = New[Event](100)

// Publish stamps Timestamp if unset and publishes to NodeBus.
func Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	NodeBus.Publish(e)
}
