package txn

import (
	"fmt"
	"sync"
	"time"

	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/types"
)

// DefaultPrepareTimeout bounds how long Prepare waits for every
// participant's vote before treating a non-responder as a NO.
const DefaultPrepareTimeout = 2 * time.Second

// Participant is a single shard's transaction machinery as seen by the
// coordinator: propose a prepared record or a commit/abort decision
// through that shard's own consensus group.
type Participant struct {
	Shard   types.ShardID
	Propose Proposer
}

type distributedTxn struct {
	mu sync.Mutex

	id     types.TxnID
	state  types.TxnState
	writes map[types.ShardID]map[string][]byte
}

// Coordinator drives a distributed transaction's prepare and commit
// phases across its participant shards. One of the participants is
// conventionally also the coordinator's own shard, but Coordinator
// itself is shard-agnostic: it only needs a Proposer per participant.
type Coordinator struct {
	prepareTimeout time.Duration

	mu   sync.Mutex
	txns map[types.TxnID]*distributedTxn
}

// NewCoordinator builds an empty distributed-transaction coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{prepareTimeout: DefaultPrepareTimeout, txns: make(map[types.TxnID]*distributedTxn)}
}

// Begin starts a distributed transaction over the given shards.
func (c *Coordinator) Begin(shards []types.ShardID) types.TxnID {
	id := types.NewTxnID()
	writes := make(map[types.ShardID]map[string][]byte, len(shards))
	for _, s := range shards {
		writes[s] = make(map[string][]byte)
	}
	c.mu.Lock()
	c.txns[id] = &distributedTxn{id: id, state: types.TxnActive, writes: writes}
	c.mu.Unlock()
	return id
}

// Write buffers a write for key against one of the transaction's
// participant shards.
func (c *Coordinator) Write(id types.TxnID, shard types.ShardID, key string, value []byte) error {
	c.mu.Lock()
	tx, ok := c.txns[id]
	c.mu.Unlock()
	if !ok {
		return ErrUnknownTxn
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != types.TxnActive {
		return ErrNotActive
	}
	shardWrites, ok := tx.writes[shard]
	if !ok {
		return fmt.Errorf("txn: shard %q is not a participant in transaction %s", shard, id)
	}
	shardWrites[key] = value
	return nil
}

// Prepare sends PREPARE to every participant shard in participants,
// persisting a prepared record through each shard's own consensus
// before treating it as a YES vote. Any NO or timeout aborts the whole
// transaction: Prepare itself sends no abort notification, leaving
// that to the caller via Abort once it observes the false return.
func (c *Coordinator) Prepare(id types.TxnID, participants []Participant) (bool, error) {
	c.mu.Lock()
	tx, ok := c.txns[id]
	c.mu.Unlock()
	if !ok {
		return false, ErrUnknownTxn
	}
	tx.mu.Lock()
	if tx.state != types.TxnActive {
		tx.mu.Unlock()
		return false, ErrNotActive
	}
	tx.state = types.TxnPrepared
	writesSnapshot := make(map[types.ShardID]map[string][]byte, len(tx.writes))
	for shard, w := range tx.writes {
		cp := make(map[string][]byte, len(w))
		for k, v := range w {
			cp[k] = v
		}
		writesSnapshot[shard] = cp
	}
	tx.mu.Unlock()

	for _, p := range participants {
		writes := writesSnapshot[p.Shard]
		payload, err := encodePreparedRecord(preparedRecord{TxnID: id, Writes: writes})
		if err != nil {
			return false, fmt.Errorf("txn: encode prepared record for shard %q: %w", p.Shard, err)
		}
		done := make(chan error, 1)
		go func(p Participant) {
			_, err := p.Propose(opPrepare, payload)
			done <- err
		}(p)
		select {
		case err := <-done:
			if err != nil {
				return false, nil
			}
		case <-time.After(c.prepareTimeout):
			return false, nil
		}
	}
	return true, nil
}

// Commit persists the COMMIT decision through coordinatorPropose (the
// coordinator's own consensus group), then replicates a commit
// decision to every participant so each installs its buffered writes.
// CommitTs is assigned once, shared across every participant shard so
// the transaction's effect becomes visible atomically from a reader's
// perspective even though each shard installs independently.
func (c *Coordinator) Commit(id types.TxnID, coordinatorPropose Proposer, participants []Participant, commitTs uint64) error {
	c.mu.Lock()
	tx, ok := c.txns[id]
	c.mu.Unlock()
	if !ok {
		return ErrUnknownTxn
	}
	tx.mu.Lock()
	if tx.state != types.TxnPrepared {
		tx.mu.Unlock()
		return ErrPrepared
	}
	tx.mu.Unlock()

	decisionPayload, err := encodeCommitDecision(commitDecision{TxnID: id, CommitTs: commitTs})
	if err != nil {
		return fmt.Errorf("txn: encode commit decision: %w", err)
	}
	if _, err := coordinatorPropose.Propose(opCommitDecision, decisionPayload); err != nil {
		return fmt.Errorf("txn: persist coordinator commit decision: %w", err)
	}

	for _, p := range participants {
		if _, err := p.Propose(opCommitDecision, decisionPayload); err != nil {
			return fmt.Errorf("txn: notify shard %q of commit decision: %w", p.Shard, err)
		}
	}

	tx.mu.Lock()
	tx.state = types.TxnCommitted
	tx.mu.Unlock()

	c.mu.Lock()
	delete(c.txns, id)
	c.mu.Unlock()
	return nil
}

// Abort replicates an ABORT decision to every participant that was
// prepared, so none of them install the transaction's writes.
func (c *Coordinator) Abort(id types.TxnID, participants []Participant) error {
	c.mu.Lock()
	tx, ok := c.txns[id]
	c.mu.Unlock()
	if !ok {
		return ErrUnknownTxn
	}

	payload, err := encodeCommitDecision(commitDecision{TxnID: id})
	if err != nil {
		return fmt.Errorf("txn: encode abort decision: %w", err)
	}
	for _, p := range participants {
		if _, err := p.Propose(opAbortDecision, payload); err != nil {
			return fmt.Errorf("txn: notify shard %q of abort: %w", p.Shard, err)
		}
	}

	tx.mu.Lock()
	tx.state = types.TxnAborted
	tx.mu.Unlock()

	c.mu.Lock()
	delete(c.txns, id)
	c.mu.Unlock()
	return nil
}

// ParticipantApplier is the consensus.Applier a participant shard
// installs: it buffers prepared writes keyed by TxnID, then installs
// them into its local mvcc.Store only once the matching commit
// decision arrives — never on a bare commit decision for a
// transaction it never saw prepared, and never twice.
type ParticipantApplier struct {
	install func(writes map[string][]byte, txnID types.TxnID, commitTs uint64) error

	mu       sync.Mutex
	prepared map[types.TxnID]map[string][]byte
}

// NewParticipantApplier builds a ParticipantApplier that installs
// through install (typically (*mvcc.Store).Install).
func NewParticipantApplier(install func(writes map[string][]byte, txnID types.TxnID, commitTs uint64) error) *ParticipantApplier {
	return &ParticipantApplier{install: install, prepared: make(map[types.TxnID]map[string][]byte)}
}

var _ consensus.Applier = (*ParticipantApplier)(nil)

// Apply handles the three entry kinds a participant's consensus log
// may carry for a distributed transaction.
func (a *ParticipantApplier) Apply(entry consensus.LogEntry) error {
	switch entry.Op {
	case opPrepare:
		rec, err := decodePreparedRecord(entry.Payload)
		if err != nil {
			return fmt.Errorf("txn: decode prepared record: %w", err)
		}
		a.mu.Lock()
		a.prepared[rec.TxnID] = rec.Writes
		a.mu.Unlock()
		return nil

	case opCommitDecision:
		dec, err := decodeCommitDecision(entry.Payload)
		if err != nil {
			return fmt.Errorf("txn: decode commit decision: %w", err)
		}
		a.mu.Lock()
		writes, ok := a.prepared[dec.TxnID]
		delete(a.prepared, dec.TxnID)
		a.mu.Unlock()
		if !ok {
			return nil
		}
		return a.install(writes, dec.TxnID, dec.CommitTs)

	case opAbortDecision:
		dec, err := decodeCommitDecision(entry.Payload)
		if err != nil {
			return fmt.Errorf("txn: decode abort decision: %w", err)
		}
		a.mu.Lock()
		delete(a.prepared, dec.TxnID)
		a.mu.Unlock()
		return nil

	default:
		return nil
	}
}
