// Package shard is the automatic sharding layer: a consistent hash
// ring maps keys to nodes, Manager tracks each shard's key range,
// replica set and lifecycle status, and background helpers split,
// merge, rebalance and mitigate hot shards without ever running two
// migrations of the same shard concurrently.
package shard
