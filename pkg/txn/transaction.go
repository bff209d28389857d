package txn

import (
	"sync"

	"github.com/hypermesh/stoq/pkg/types"
)

// transaction is the manager's internal bookkeeping for one in-flight
// transaction: buffered writes, the set of keys read along with the
// version start_ts observed for each (used to validate
// RepeatableRead/Serializable at commit), and its lifecycle state.
type transaction struct {
	mu sync.Mutex

	id        types.TxnID
	isolation types.IsolationLevel
	readTs    uint64
	state     types.TxnState

	reads  map[string]uint64 // key -> start_ts of the version observed
	writes map[string][]byte
}

func newTransaction(id types.TxnID, iso types.IsolationLevel, readTs uint64) *transaction {
	return &transaction{
		id:        id,
		isolation: iso,
		readTs:    readTs,
		state:     types.TxnActive,
		reads:     make(map[string]uint64),
		writes:    make(map[string][]byte),
	}
}

// CommitResult summarizes a successful commit.
type CommitResult struct {
	TxnID        types.TxnID
	CommitTs     uint64
	CommittedKeys []string
}
