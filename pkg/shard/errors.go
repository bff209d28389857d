package shard

import "errors"

var (
	// ErrShardUnavailable is returned when routing resolves to a shard
	// that is not currently Active.
	ErrShardUnavailable = errors.New("shard: shard unavailable")
	// ErrShardNotFound is returned for any operation against an unknown ShardId.
	ErrShardNotFound = errors.New("shard: shard not found")
	// ErrInvalidSplitKey is returned when a requested split key does not
	// fall strictly inside the target shard's range.
	ErrInvalidSplitKey = errors.New("shard: split key must fall strictly inside the shard's range")
	// ErrNotAdjacent is returned when Merge is asked to merge two
	// shards that do not share a boundary or replica set.
	ErrNotAdjacent = errors.New("shard: shards are not adjacent or compatible for merge")
	// ErrMigrationInProgress is returned when an operation would start
	// a second concurrent migration of the same shard.
	ErrMigrationInProgress = errors.New("shard: a migration is already in progress for this shard")
	// ErrNoOwner is returned by Route when the hash ring has no nodes.
	ErrNoOwner = errors.New("shard: hash ring has no nodes")
)
