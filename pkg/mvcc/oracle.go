package mvcc

import "sync/atomic"

// TimestampOracle issues strictly increasing logical timestamps: one
// per transaction begin (read_ts) and one per successful commit
// (commit_ts), guaranteeing commit_ts always exceeds every read_ts and
// every previously issued commit_ts.
type TimestampOracle struct {
	counter atomic.Uint64
}

// NewTimestampOracle starts counting from 1, reserving 0 to mean
// "no timestamp" in zero-valued structs.
func NewTimestampOracle() *TimestampOracle {
	o := &TimestampOracle{}
	o.counter.Store(0)
	return o
}

// Next returns the next logical timestamp.
func (o *TimestampOracle) Next() uint64 {
	return o.counter.Add(1)
}
