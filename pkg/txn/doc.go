// Package txn is the transaction manager sitting between application
// requests and pkg/mvcc: it owns the begin/read/write/commit/rollback
// state machine, enforces each of the three isolation levels' read and
// conflict rules, and replicates commit intents through a consensus
// engine before installing their effect into the version store. Cross-
// shard transactions run through Coordinator's two-phase commit on top
// of the same single-shard Manager machinery.
package txn
