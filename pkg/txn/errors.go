package txn

import "errors"

var (
	// ErrUnknownTxn is returned for any operation against a TxnID the
	// manager has no record of (never began, or already finished).
	ErrUnknownTxn = errors.New("txn: unknown transaction")
	// ErrNotActive is returned when an operation requires the
	// transaction to still be TxnActive.
	ErrNotActive = errors.New("txn: transaction is not active")
	// ErrConflict is the isolation-level conflict abort: a concurrent
	// committer changed a key this transaction read or is writing.
	// It is never retried automatically by the manager.
	ErrConflict = errors.New("txn: conflict abort")
	// ErrReplicationStalled is returned when a commit's intent entry
	// does not reach the applied state within the commit timeout.
	ErrReplicationStalled = errors.New("txn: replication stalled")
	// ErrPrepared is returned for any distributed Prepare/Commit/Abort
	// call made out of the expected coordinator state-machine order.
	ErrPrepared = errors.New("txn: distributed transaction is not in the expected phase")
)
