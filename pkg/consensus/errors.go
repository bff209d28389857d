package consensus

import "errors"

var (
	// ErrNotLeader is returned by operations that require leadership
	// (replicate, membership change) when called on a non-leader.
	ErrNotLeader = errors.New("consensus: not leader")
	// ErrReplicationStalled means a follower's next_index has backed
	// off repeatedly without success; the caller should retry after
	// the quorum-loss timeout.
	ErrReplicationStalled = errors.New("consensus: replication stalled")
	// ErrQuorumLost means fewer than a majority of members are
	// reachable; operations stall until quorum is restored.
	ErrQuorumLost = errors.New("consensus: quorum lost")
	// ErrByzantineRejected means the message's sender is isolated and
	// the engine refused to process it.
	ErrByzantineRejected = errors.New("consensus: sender is isolated")
	// ErrStaleTerm means a message carried a term older than the
	// engine's current term and was ignored.
	ErrStaleTerm = errors.New("consensus: stale term")
)
