// Package mvcc is the versioned key-value store every STOQ transaction
// reads and writes through: each key holds an ordered, non-overlapping
// chain of {value, writer, start_ts, end_ts} versions durably backed by
// pkg/storage, with a logical timestamp oracle and a background
// garbage collector that trims versions no active transaction can still
// see. pkg/txn drives isolation-level read rules and commit validation
// on top of this package; mvcc itself knows nothing about transaction
// state machines or two-phase commit.
package mvcc
