package txn

import (
	"encoding/json"

	"github.com/hypermesh/stoq/pkg/types"
)

// opCommitIntent is the consensus Op tag for a single-shard commit
// intent: once replicated, its Writes are installed into pkg/mvcc
// verbatim.
const opCommitIntent = "mvcc_commit_intent"

// opPrepare and opCommitDecision carry the two phases of a distributed
// transaction through each participant shard's own consensus log.
const (
	opPrepare       = "mvcc_prepare"
	opCommitDecision = "mvcc_commit_decision"
	opAbortDecision  = "mvcc_abort_decision"
)

// commitIntent is the wire form replicated for a single-shard commit.
type commitIntent struct {
	TxnID    types.TxnID
	CommitTs uint64
	Writes   map[string][]byte
}

func encodeCommitIntent(i commitIntent) ([]byte, error) { return json.Marshal(i) }

func decodeCommitIntent(raw []byte) (commitIntent, error) {
	var i commitIntent
	err := json.Unmarshal(raw, &i)
	return i, err
}

// preparedRecord is replicated by a participant shard once it has
// validated and buffered a distributed transaction's writes for that
// shard, before the coordinator has decided the outcome.
type preparedRecord struct {
	TxnID  types.TxnID
	Writes map[string][]byte
}

func encodePreparedRecord(r preparedRecord) ([]byte, error) { return json.Marshal(r) }

func decodePreparedRecord(raw []byte) (preparedRecord, error) {
	var r preparedRecord
	err := json.Unmarshal(raw, &r)
	return r, err
}

// commitDecision is replicated by the coordinator once every
// participant has voted YES, and separately by each participant once
// it is instructed to install the transaction's writes.
type commitDecision struct {
	TxnID    types.TxnID
	CommitTs uint64
}

func encodeCommitDecision(d commitDecision) ([]byte, error) { return json.Marshal(d) }

func decodeCommitDecision(raw []byte) (commitDecision, error) {
	var d commitDecision
	err := json.Unmarshal(raw, &d)
	return d, err
}
