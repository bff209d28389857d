package mvcc

import (
	"encoding/json"
	"math"

	"github.com/hypermesh/stoq/pkg/types"
)

// EndOfTime marks a version as the current tip of its chain.
const EndOfTime = math.MaxUint64

// Version is one entry in a key's version chain: it was written by
// WriterTxn, became visible at StartTs, and remains visible until
// EndTs (exclusive). EndOfTime marks the chain's current tip.
type Version struct {
	Value     []byte
	WriterTxn types.TxnID
	StartTs   uint64
	EndTs     uint64
}

// chain is the durable, JSON-encoded form of a key's full version
// history, stored as one bucket value per key.
type chain struct {
	Versions []Version
}

func decodeChain(raw []byte) (chain, error) {
	if raw == nil {
		return chain{}, nil
	}
	var c chain
	if err := json.Unmarshal(raw, &c); err != nil {
		return chain{}, err
	}
	return c, nil
}

func (c chain) encode() ([]byte, error) {
	return json.Marshal(c)
}

// tip returns the chain's current (EndTs == EndOfTime) version, if any.
func (c chain) tip() (Version, bool) {
	for i := len(c.Versions) - 1; i >= 0; i-- {
		if c.Versions[i].EndTs == EndOfTime {
			return c.Versions[i], true
		}
	}
	return Version{}, false
}

// at returns the version visible at readTs: the one whose
// [StartTs, EndTs) interval contains it.
func (c chain) at(readTs uint64) (Version, bool) {
	for i := len(c.Versions) - 1; i >= 0; i-- {
		v := c.Versions[i]
		if v.StartTs <= readTs && readTs < v.EndTs {
			return v, true
		}
	}
	return Version{}, false
}
