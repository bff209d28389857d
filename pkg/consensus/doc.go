// Package consensus implements single-leader, term-based replication
// with majority commit: the node state machine (Follower, Candidate,
// Leader), election timers, vote rules, AppendEntries replication and
// commit-index advancement, single-node membership changes, and the
// Byzantine-detection hook every inbound message passes through before
// the engine processes it.
//
// It does not embed hashicorp/raft: that library's FSM/Raft API treats
// message handling as a black box, and the detector in pkg/bft must see
// every VoteRequest/AppendEntries before the engine acts on it. The
// durable state (current_term, voted_for, commit_index, and the entry
// log itself) is delegated to pkg/consensuslog.
package consensus
