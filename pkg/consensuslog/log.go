package consensuslog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/hypermesh/stoq/pkg/types"
)

const (
	entryBucket = "consensus_log"
	metaBucket  = "consensus_meta"
	metaKey     = "state"
)

// Metadata is the durable record every replica writes before responding
// to any message that depends on it.
type Metadata struct {
	CurrentTerm types.Term     `json:"current_term"`
	VotedFor    string         `json:"voted_for"`
	CommitIndex types.LogIndex `json:"commit_index"`
}

// Log is the durable, checksummed, append-only sequence of consensus
// entries plus the {current_term, voted_for, commit_index} metadata
// record, both backed by a storage.Store.
type Log struct {
	store  storage.Store
	mu     sync.RWMutex
	lastIdx types.LogIndex
}

// Open opens (or initializes) the log and metadata buckets in store.
func Open(store storage.Store) (*Log, error) {
	l := &Log{store: store}
	if err := l.store.View(func(tx storage.Tx) error {
		b, err := tx.Bucket(entryBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			idx := types.LogIndex(binary.BigEndian.Uint64(k))
			if idx > l.lastIdx {
				l.lastIdx = idx
			}
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("consensuslog: scan existing entries: %w", err)
	}
	return l, nil
}

// LoadMetadata reads the persisted {current_term, voted_for,
// commit_index} record, returning a zero-value Metadata if none exists
// yet.
func (l *Log) LoadMetadata() (Metadata, error) {
	var meta Metadata
	err := l.store.View(func(tx storage.Tx) error {
		b, err := tx.Bucket(metaBucket)
		if err != nil {
			return err
		}
		raw, err := b.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &meta)
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("consensuslog: load metadata: %w", err)
	}
	return meta, nil
}

// SaveMetadata persists meta. Callers must write this before sending
// any response that depends on current_term/voted_for/commit_index.
func (l *Log) SaveMetadata(meta Metadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("consensuslog: encode metadata: %w", err)
	}
	return l.store.Update(func(tx storage.Tx) error {
		b, err := tx.Bucket(metaBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(metaKey), raw)
	})
}

// LastIndex returns the index of the most recently appended entry, or
// 0 if the log is empty.
func (l *Log) LastIndex() types.LogIndex {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastIdx
}

// LastTerm returns the term of the last entry, or 0 if the log is
// empty.
func (l *Log) LastTerm() (types.Term, error) {
	l.mu.RLock()
	last := l.lastIdx
	l.mu.RUnlock()
	if last == 0 {
		return 0, nil
	}
	e, err := l.Get(last)
	if err != nil {
		return 0, err
	}
	return e.Term, nil
}

// Append writes entry at the next index, sealing its checksum.
func (l *Log) Append(term types.Term, op string, payload []byte) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.lastIdx + 1
	e := &Entry{Index: idx, Term: term, Op: op, Payload: payload}
	e.seal()

	if err := l.putLocked(e); err != nil {
		return nil, err
	}
	l.lastIdx = idx
	return e, nil
}

// Get returns the entry at index, verifying its checksum.
func (l *Log) Get(index types.LogIndex) (*Entry, error) {
	var raw []byte
	err := l.store.View(func(tx storage.Tx) error {
		b, err := tx.Bucket(entryBucket)
		if err != nil {
			return err
		}
		v, err := b.Get(indexKey(index))
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("consensuslog: read entry %d: %w", index, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return decodeEntry(index, raw)
}

// TruncateAfter deletes every entry with index > after, used when a
// follower's suffix conflicts with the leader's.
func (l *Log) TruncateAfter(after types.LogIndex) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if after >= l.lastIdx {
		return nil
	}
	err := l.store.Update(func(tx storage.Tx) error {
		b, err := tx.Bucket(entryBucket)
		if err != nil {
			return err
		}
		for i := after + 1; i <= l.lastIdx; i++ {
			if err := b.Delete(indexKey(i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("consensuslog: truncate after %d: %w", after, err)
	}
	l.lastIdx = after
	return nil
}

// AppendAt writes entry at an explicit index (used by followers
// replicating a leader's entries), sealing its checksum and advancing
// lastIdx if this extends the log.
func (l *Log) AppendAt(index types.LogIndex, term types.Term, op string, payload []byte) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := &Entry{Index: index, Term: term, Op: op, Payload: payload}
	e.seal()
	if err := l.putLocked(e); err != nil {
		return nil, err
	}
	if index > l.lastIdx {
		l.lastIdx = index
	}
	return e, nil
}

func (l *Log) putLocked(e *Entry) error {
	err := l.store.Update(func(tx storage.Tx) error {
		b, err := tx.Bucket(entryBucket)
		if err != nil {
			return err
		}
		return b.Put(indexKey(e.Index), e.encode())
	})
	if err != nil {
		return fmt.Errorf("consensuslog: write entry %d: %w", e.Index, err)
	}
	return nil
}

func indexKey(index types.LogIndex) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(index))
	return k[:]
}
