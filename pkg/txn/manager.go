package txn

import (
	"fmt"
	"sync"
	"time"

	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/mvcc"
	"github.com/hypermesh/stoq/pkg/types"
)

// DefaultCommitTimeout bounds how long Commit waits for its intent
// entry to be applied before giving up with ErrReplicationStalled.
const DefaultCommitTimeout = 2 * time.Second

// Manager is the single-shard transaction manager: it validates and
// buffers reads/writes in memory, and on commit replicates an intent
// through its Proposer before installing it into its Store. It
// implements consensus.Applier so the same engine that accepted the
// Propose call drives the install once the intent is durably
// committed.
type Manager struct {
	store  *mvcc.Store
	oracle *mvcc.TimestampOracle
	reads  *mvcc.ReadTsTracker
	propose Proposer

	commitTimeout time.Duration

	mu      sync.Mutex
	txns    map[types.TxnID]*transaction
	waiters map[types.TxnID]chan error
}

var _ consensus.Applier = (*Manager)(nil)

// NewManager builds a Manager over store and oracle, replicating
// commits through propose.
func NewManager(store *mvcc.Store, oracle *mvcc.TimestampOracle, reads *mvcc.ReadTsTracker, propose Proposer) *Manager {
	return &Manager{
		store:         store,
		oracle:        oracle,
		reads:         reads,
		propose:       propose,
		commitTimeout: DefaultCommitTimeout,
		txns:          make(map[types.TxnID]*transaction),
		waiters:       make(map[types.TxnID]chan error),
	}
}

// Begin starts a transaction at a fresh read_ts under the given
// isolation level.
func (m *Manager) Begin(iso types.IsolationLevel) types.TxnID {
	readTs := m.oracle.Next()
	m.reads.Acquire(readTs)

	tx := newTransaction(types.NewTxnID(), iso, readTs)

	m.mu.Lock()
	m.txns[tx.id] = tx
	m.mu.Unlock()
	return tx.id
}

func (m *Manager) lookup(id types.TxnID) (*transaction, error) {
	m.mu.Lock()
	tx, ok := m.txns[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrUnknownTxn
	}
	return tx, nil
}

// Read applies the isolation level's read rule: a write this same
// transaction already buffered is always visible to it; otherwise
// ReadCommitted reads the chain's current tip, RepeatableRead and
// Serializable read the version visible at the transaction's read_ts
// and remember it for commit-time validation.
func (m *Manager) Read(id types.TxnID, key string) ([]byte, bool, error) {
	tx, err := m.lookup(id)
	if err != nil {
		return nil, false, err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != types.TxnActive {
		return nil, false, ErrNotActive
	}
	if v, ok := tx.writes[key]; ok {
		return v, true, nil
	}

	if tx.isolation == types.ReadCommitted {
		v, _, ok, err := m.store.ReadLatestCommitted([]byte(key))
		return v, ok, err
	}

	v, startTs, ok, err := m.store.ReadAt([]byte(key), tx.readTs)
	if err != nil {
		return nil, false, err
	}
	if ok {
		tx.reads[key] = startTs
	}
	return v, ok, nil
}

// Write buffers value for key; it becomes visible only after a
// successful Commit.
func (m *Manager) Write(id types.TxnID, key string, value []byte) error {
	tx, err := m.lookup(id)
	if err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != types.TxnActive {
		return ErrNotActive
	}
	tx.writes[key] = value
	return nil
}

// Commit validates the transaction's read set and written keys against
// its isolation level, replicates its buffered writes as a commit intent, and blocks
// until that intent has been installed into the version store.
func (m *Manager) Commit(id types.TxnID) (CommitResult, error) {
	tx, err := m.lookup(id)
	if err != nil {
		return CommitResult{}, err
	}
	tx.mu.Lock()
	if tx.state != types.TxnActive {
		tx.mu.Unlock()
		return CommitResult{}, ErrNotActive
	}
	if len(tx.writes) == 0 {
		tx.state = types.TxnCommitted
		tx.mu.Unlock()
		m.finish(id)
		return CommitResult{TxnID: id}, nil
	}

	if tx.isolation != types.ReadCommitted {
		for key, seenTs := range tx.reads {
			tipTs, ok, err := m.store.TipStartTs([]byte(key))
			if err != nil {
				tx.mu.Unlock()
				return CommitResult{}, err
			}
			if ok && tipTs != seenTs {
				tx.mu.Unlock()
				return CommitResult{}, ErrConflict
			}
		}
		for key := range tx.writes {
			tipTs, ok, err := m.store.TipStartTs([]byte(key))
			if err != nil {
				tx.mu.Unlock()
				return CommitResult{}, err
			}
			if ok && tipTs > tx.readTs {
				tx.mu.Unlock()
				return CommitResult{}, ErrConflict
			}
		}
	}

	commitTs := m.oracle.Next()
	writes := make(map[string][]byte, len(tx.writes))
	keys := make([]string, 0, len(tx.writes))
	for k, v := range tx.writes {
		writes[k] = v
		keys = append(keys, k)
	}
	tx.mu.Unlock()

	payload, err := encodeCommitIntent(commitIntent{TxnID: id, CommitTs: commitTs, Writes: writes})
	if err != nil {
		return CommitResult{}, fmt.Errorf("txn: encode commit intent: %w", err)
	}

	ch := make(chan error, 1)
	m.mu.Lock()
	m.waiters[id] = ch
	m.mu.Unlock()

	if _, err := m.propose.Propose(opCommitIntent, payload); err != nil {
		m.mu.Lock()
		delete(m.waiters, id)
		m.mu.Unlock()
		return CommitResult{}, fmt.Errorf("txn: propose commit intent: %w", err)
	}

	select {
	case err := <-ch:
		if err != nil {
			return CommitResult{}, err
		}
	case <-time.After(m.commitTimeout):
		m.mu.Lock()
		delete(m.waiters, id)
		m.mu.Unlock()
		return CommitResult{}, ErrReplicationStalled
	}

	tx.mu.Lock()
	tx.state = types.TxnCommitted
	tx.mu.Unlock()
	m.finish(id)

	return CommitResult{TxnID: id, CommitTs: commitTs, CommittedKeys: keys}, nil
}

// Rollback discards a transaction's buffered writes without
// replicating anything.
func (m *Manager) Rollback(id types.TxnID) error {
	tx, err := m.lookup(id)
	if err != nil {
		return err
	}
	tx.mu.Lock()
	tx.state = types.TxnAborted
	tx.mu.Unlock()
	m.finish(id)
	return nil
}

func (m *Manager) finish(id types.TxnID) {
	m.mu.Lock()
	tx, ok := m.txns[id]
	delete(m.txns, id)
	m.mu.Unlock()
	if ok {
		m.reads.Release(tx.readTs)
	}
}

// Apply installs a committed intent's writes into the version store
// and wakes the Commit call waiting on it. Entries with any other Op
// are ignored, letting the same consensus engine carry other entry
// kinds (membership, byzantine reports) without this Applier caring.
func (m *Manager) Apply(entry consensus.LogEntry) error {
	if entry.Op != opCommitIntent {
		return nil
	}
	intent, err := decodeCommitIntent(entry.Payload)
	if err != nil {
		return fmt.Errorf("txn: decode commit intent: %w", err)
	}

	installErr := m.store.Install(intent.Writes, intent.TxnID, intent.CommitTs)

	m.mu.Lock()
	if ch, ok := m.waiters[intent.TxnID]; ok {
		ch <- installErr
		delete(m.waiters, intent.TxnID)
	}
	m.mu.Unlock()

	return installErr
}
