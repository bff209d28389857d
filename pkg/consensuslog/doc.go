// Package consensuslog is the durable metadata and entry log every
// consensus replica persists before responding to any message that
// depends on it: a {current_term, voted_for, commit_index} record, and
// an append-only, checksummed sequence of entries. It is built on
// pkg/storage's bucketed KV contract, backed by bbolt, rather than a
// dedicated log file.
package consensuslog
