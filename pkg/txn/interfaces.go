package txn

import "github.com/hypermesh/stoq/pkg/types"

// Proposer replicates an operation through a consensus engine,
// returning the log index it was appended at. pkg/consensus.Engine
// satisfies this directly; Manager depends on the interface rather
// than the concrete engine so it can be driven by a test double and so
// this package never needs to import pkg/consensus for anything but
// the Applier interface and the LogEntry type its Appliers are handed.
type Proposer interface {
	Propose(op string, payload []byte) (types.LogIndex, error)
}
