package storage

import (
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// BoltStore implements Store on top of a single bbolt database file:
// one data file per node data directory, with one bucket per domain.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) the node's durable store at
// <dataDir>/stoq.db.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "stoq.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Bucket(name string) (Bucket, error) {
	if err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return &boltBucket{db: s.db, name: []byte(name)}, nil
}

func (s *BoltStore) Update(fn func(tx Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{btx: btx})
	})
}

func (s *BoltStore) View(fn func(tx Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{btx: btx})
	})
}

type boltTx struct {
	btx *bolt.Tx
}

func (t *boltTx) Bucket(name string) (Bucket, error) {
	b, err := t.btx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", name, err)
	}
	return &txBucket{b: b}, nil
}

// txBucket wraps an already-open *bolt.Bucket for use inside a Store.Update/View closure.
type txBucket struct {
	b *bolt.Bucket
}

func (b *txBucket) Get(key []byte) ([]byte, error) {
	v := b.b.Get(key)
	if v == nil {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *txBucket) Put(key, value []byte) error {
	return b.b.Put(key, value)
}

func (b *txBucket) Delete(key []byte) error {
	return b.b.Delete(key)
}

func (b *txBucket) ForEach(fn func(k, v []byte) error) error {
	return b.b.ForEach(fn)
}

// boltBucket manages its own short transaction per call, for callers
// that only ever touch one bucket and don't need cross-bucket atomicity.
type boltBucket struct {
	db   *bolt.DB
	name []byte
}

func (b *boltBucket) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.name).Get(key)
		if v != nil {
			out = make([]byte, len(v))
			copy(out, v)
		}
		return nil
	})
	return out, err
}

func (b *boltBucket) Put(key, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.name).Put(key, value)
	})
}

func (b *boltBucket) Delete(key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.name).Delete(key)
	})
}

func (b *boltBucket) ForEach(fn func(k, v []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(b.name).ForEach(fn)
	})
}
