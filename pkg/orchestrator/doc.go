// Package orchestrator assembles one cluster member: it wires the
// consensus engine, the Byzantine-fault monitor, the MVCC store and
// transaction manager, the shard manager, and the proxy overlay into a
// single Node, and drives their background loops (election watchdog,
// GC sweeps, metrics collection) under one Start/Stop lifecycle.
//
// Node owns no network listener of its own beyond the QUIC endpoint it
// uses both to dial peers (via transportAdapter, which implements
// consensus.Transport) and to accept their connections (via the accept
// loop in server.go, which decodes inbound consensus messages and
// feeds responses back through the same adapter). pkg/api sits above
// Node and exposes its transaction and cluster-status operations over
// HTTP.
package orchestrator
