package mvcc

import (
	"fmt"
	"sync"

	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/hypermesh/stoq/pkg/types"
)

const bucketName = "mvcc_versions"

// Store holds every key's version chain, durable through a single
// pkg/storage bucket. Per-key mutation is serialized by a map of
// per-key mutexes rather than one global lock, so writes to unrelated keys never
// block each other.
type Store struct {
	bucket storage.Bucket

	keyMu sync.Map // string(key) -> *sync.Mutex
}

// Open opens (creating if necessary) the version-chain bucket inside
// store.
func Open(store storage.Store) (*Store, error) {
	b, err := store.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("mvcc: open bucket: %w", err)
	}
	return &Store{bucket: b}, nil
}

func (s *Store) lockFor(key []byte) *sync.Mutex {
	v, _ := s.keyMu.LoadOrStore(string(key), &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *Store) loadChain(key []byte) (chain, error) {
	raw, err := s.bucket.Get(key)
	if err != nil {
		return chain{}, fmt.Errorf("mvcc: load chain for %q: %w", key, err)
	}
	return decodeChain(raw)
}

// ReadAt returns the version of key visible at readTs, per the
// RepeatableRead/Serializable read rule (version whose interval
// contains readTs).
func (s *Store) ReadAt(key []byte, readTs uint64) ([]byte, uint64, bool, error) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.loadChain(key)
	if err != nil {
		return nil, 0, false, err
	}
	v, ok := c.at(readTs)
	if !ok {
		return nil, 0, false, nil
	}
	return v.Value, v.StartTs, true, nil
}

// ReadLatestCommitted returns the chain's current tip, per the
// ReadCommitted read rule. Since Store only ever holds installed
// (i.e. committed) versions — a transaction's in-flight writes live in
// its own buffer, not here — the tip is always "the latest version
// whose writer is committed".
func (s *Store) ReadLatestCommitted(key []byte) ([]byte, uint64, bool, error) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.loadChain(key)
	if err != nil {
		return nil, 0, false, err
	}
	v, ok := c.tip()
	if !ok {
		return nil, 0, false, nil
	}
	return v.Value, v.StartTs, true, nil
}

// TipStartTs returns the start timestamp of key's current tip version,
// used by the transaction manager to detect a write-write conflict
// between a transaction's read_ts and its commit_ts.
func (s *Store) TipStartTs(key []byte) (uint64, bool, error) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.loadChain(key)
	if err != nil {
		return 0, false, err
	}
	v, ok := c.tip()
	if !ok {
		return 0, false, nil
	}
	return v.StartTs, true, nil
}

// Install atomically, per key, end-timestamps the current tip at
// commitTs and appends a new tip holding value, for every key in
// writes. Called once an intent entry carrying writes has been
// committed through consensus.
func (s *Store) Install(writes map[string][]byte, writerTxn types.TxnID, commitTs uint64) error {
	for k, v := range writes {
		if err := s.installOne([]byte(k), v, writerTxn, commitTs); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) installOne(key, value []byte, writerTxn types.TxnID, commitTs uint64) error {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.loadChain(key)
	if err != nil {
		return err
	}
	if tip, ok := c.tip(); ok {
		c.Versions[len(c.Versions)-1] = Version{
			Value: tip.Value, WriterTxn: tip.WriterTxn, StartTs: tip.StartTs, EndTs: commitTs,
		}
	}
	c.Versions = append(c.Versions, Version{
		Value: value, WriterTxn: writerTxn, StartTs: commitTs, EndTs: EndOfTime,
	})

	raw, err := c.encode()
	if err != nil {
		return fmt.Errorf("mvcc: encode chain for %q: %w", key, err)
	}
	if err := s.bucket.Put(key, raw); err != nil {
		return fmt.Errorf("mvcc: persist chain for %q: %w", key, err)
	}
	return nil
}

// TrimBefore removes every version in every chain whose EndTs is
// strictly below watermark, except it never removes a chain's sole
// remaining version even if that version's EndTs is already in the
// past — a key with no live tip still needs a reachable history for
// debugging and must not vanish from the bucket entirely mid-sweep.
func (s *Store) TrimBefore(watermark uint64) error {
	var keys [][]byte
	if err := s.bucket.ForEach(func(k, _ []byte) error {
		cp := make([]byte, len(k))
		copy(cp, k)
		keys = append(keys, cp)
		return nil
	}); err != nil {
		return fmt.Errorf("mvcc: scan chains: %w", err)
	}

	for _, key := range keys {
		if err := s.trimOne(key, watermark); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) trimOne(key []byte, watermark uint64) error {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.loadChain(key)
	if err != nil {
		return err
	}
	if len(c.Versions) <= 1 {
		return nil
	}

	kept := c.Versions[:0]
	for i, v := range c.Versions {
		if v.EndTs < watermark && i != len(c.Versions)-1 {
			continue
		}
		kept = append(kept, v)
	}
	c.Versions = kept

	raw, err := c.encode()
	if err != nil {
		return err
	}
	return s.bucket.Put(key, raw)
}
