// Package storage provides the durable, bucketed key-value layer every
// STOQ component persists through: the replicated log, the MVCC version
// chains, CA material, shard metadata and proxy mappings. It exposes a
// small bucketed-KV contract; each component defines its own typed
// accessors on top of a named Bucket instead of this package knowing
// about every domain's types.
package storage

// Bucket is a namespaced key-value collection, modeled directly on a
// bbolt bucket: Put/Get/Delete operate on raw bytes, ForEach iterates in
// key order.
type Bucket interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	ForEach(fn func(k, v []byte) error) error
}

// Store opens named, durable buckets and runs atomic multi-bucket
// transactions. Implementations must create a bucket on first use if it
// does not already exist.
type Store interface {
	// Bucket returns a handle that manages its own short transaction per
	// call, for single-bucket callers that don't need cross-bucket
	// atomicity.
	Bucket(name string) (Bucket, error)
	// Update runs fn in a single read-write transaction; bucket lookups
	// via tx are atomic with respect to each other.
	Update(fn func(tx Tx) error) error
	View(fn func(tx Tx) error) error
	Close() error
}

// Tx is a transaction-scoped bucket accessor.
type Tx interface {
	Bucket(name string) (Bucket, error)
}
