package orchestrator

import (
	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/types"
)

// lazyApplier breaks the construction cycle between the consensus
// engine (which needs an Applier at New) and the transaction manager
// (which needs the engine, as a Proposer, at its own New): the engine
// is built against a lazyApplier whose target is assigned once the
// transaction manager exists, one line later in the same function.
type lazyApplier struct {
	target consensus.Applier
}

func (l *lazyApplier) Apply(entry consensus.LogEntry) error {
	return l.target.Apply(entry)
}

// lazyProposer is the mirror image, standing in as a txn.Proposer
// until the engine it forwards to is constructed.
type lazyProposer struct {
	engine *consensus.Engine
}

func (l *lazyProposer) Propose(op string, payload []byte) (types.LogIndex, error) {
	return l.engine.Propose(op, payload)
}
