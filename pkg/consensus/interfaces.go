package consensus

import (
	"context"

	"github.com/hypermesh/stoq/pkg/types"
)

// Transport sends a message to a single peer. The engine itself knows
// nothing about QUIC, streams, or framing; pkg/orchestrator wires a
// Transport implementation over pkg/transport's connection pool.
type Transport interface {
	Send(ctx context.Context, to types.NodeID, msg Message) error
}

// Detector observes every inbound consensus message before the engine
// acts on it and tracks which nodes are currently isolated. pkg/bft
// implements this; tests use a permissive stub.
type Detector interface {
	Observe(from types.NodeID, msg Message)
	IsIsolated(node types.NodeID) bool
}

// Applier installs a committed entry's effect into durable state (the
// MVCC store, shard map, membership). The engine calls Apply in index
// order, one entry at a time, from its single apply task.
type Applier interface {
	Apply(entry LogEntry) error
}
