package shard

import (
	"bytes"
	"sync"
	"time"

	"github.com/hypermesh/stoq/pkg/types"
)

// Manager owns the set of shards this cluster knows about, the
// consistent hash ring used to route keys to nodes, and the migration
// tracker that prevents two migrations of the same shard from running
// concurrently.
type Manager struct {
	nodeID types.NodeID

	mu     sync.RWMutex
	shards map[types.ShardID]*Shard
	ring   *ConsistentHashRing

	migrationsMu sync.Mutex
	migrating    map[types.ShardID]bool

	now func() time.Time
}

// NewManager builds an empty shard manager for this node, using ring
// for key-to-node routing.
func NewManager(nodeID types.NodeID, ring *ConsistentHashRing) *Manager {
	return &Manager{
		nodeID:    nodeID,
		shards:    make(map[types.ShardID]*Shard),
		ring:      ring,
		migrating: make(map[types.ShardID]bool),
		now:       time.Now,
	}
}

// Register adds shard to the manager's tracked set, for shards created
// out of band (initial cluster bootstrap, or a split/merge installing
// its results).
func (m *Manager) Register(s *Shard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shards[s.ID] = s
}

// Get returns the current state of shard id.
func (m *Manager) Get(id types.ShardID) (*Shard, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shards[id]
	return s, ok
}

// Route maps key to a ShardId: hash the key to a node via the ring,
// then find that node's active shard whose range contains the key.
func (m *Manager) Route(key []byte) (types.ShardID, error) {
	node, ok := m.ring.NodeFor(string(key))
	if !ok {
		return "", ErrNoOwner
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.shards {
		if s.Primary != node {
			continue
		}
		if !s.KeyRange.Contains(key) {
			continue
		}
		if s.Status != types.ShardActive {
			return s.ID, ErrShardUnavailable
		}
		return s.ID, nil
	}
	return "", ErrShardUnavailable
}

func (m *Manager) beginMigration(id types.ShardID) error {
	m.migrationsMu.Lock()
	defer m.migrationsMu.Unlock()
	if m.migrating[id] {
		return ErrMigrationInProgress
	}
	m.migrating[id] = true
	return nil
}

func (m *Manager) endMigration(id types.ShardID) {
	m.migrationsMu.Lock()
	delete(m.migrating, id)
	m.migrationsMu.Unlock()
}

// Split divides shard id at splitKey into two new Active shards,
// retiring the original. migrateFn is called with the source shard and
// each new range to copy the matching keys across before the swap;
// Split atomically installs both children and marks the source
// Decommissioning only after migrateFn succeeds for both.
func (m *Manager) Split(id types.ShardID, splitKey []byte, newID1, newID2 types.ShardID, migrateFn func(src *Shard, dst *Shard) error) (*Shard, *Shard, error) {
	if err := m.beginMigration(id); err != nil {
		return nil, nil, err
	}
	defer m.endMigration(id)

	m.mu.Lock()
	src, ok := m.shards[id]
	if !ok {
		m.mu.Unlock()
		return nil, nil, ErrShardNotFound
	}
	if !src.KeyRange.Contains(splitKey) || bytes.Equal(splitKey, src.KeyRange.Lo) {
		m.mu.Unlock()
		return nil, nil, ErrInvalidSplitKey
	}
	src.Status = types.ShardSplitting
	now := m.now()

	s1 := &Shard{
		ID: newID1, KeyRange: types.KeyRange{Lo: src.KeyRange.Lo, Hi: splitKey},
		Replicas: src.Replicas, Primary: src.Primary, Status: types.ShardInitializing,
		CreatedAt: now, LastModified: now,
	}
	s2 := &Shard{
		ID: newID2, KeyRange: types.KeyRange{Lo: splitKey, Hi: src.KeyRange.Hi},
		Replicas: src.Replicas, Primary: src.Primary, Status: types.ShardInitializing,
		CreatedAt: now, LastModified: now,
	}
	m.mu.Unlock()

	if migrateFn != nil {
		if err := migrateFn(src, s1); err != nil {
			return nil, nil, err
		}
		if err := migrateFn(src, s2); err != nil {
			return nil, nil, err
		}
	}

	m.mu.Lock()
	s1.Status = types.ShardActive
	s2.Status = types.ShardActive
	m.shards[newID1] = s1
	m.shards[newID2] = s2
	src.Status = types.ShardDecommission
	src.touch(m.now())
	m.mu.Unlock()

	return s1, s2, nil
}

// Merge unions two adjacent, replica-compatible shards into a new
// shard covering their combined range, retiring both originals.
func (m *Manager) Merge(id1, id2 types.ShardID, mergedID types.ShardID, migrateFn func(src1, src2, dst *Shard) error) (*Shard, error) {
	if err := m.beginMigration(id1); err != nil {
		return nil, err
	}
	defer m.endMigration(id1)
	if err := m.beginMigration(id2); err != nil {
		return nil, err
	}
	defer m.endMigration(id2)

	m.mu.Lock()
	s1, ok1 := m.shards[id1]
	s2, ok2 := m.shards[id2]
	if !ok1 || !ok2 {
		m.mu.Unlock()
		return nil, ErrShardNotFound
	}
	if !bytes.Equal(s1.KeyRange.Hi, s2.KeyRange.Lo) || !sameReplicaSet(s1.Replicas, s2.Replicas) {
		m.mu.Unlock()
		return nil, ErrNotAdjacent
	}
	s1.Status = types.ShardMerging
	s2.Status = types.ShardMerging
	now := m.now()

	merged := &Shard{
		ID: mergedID, KeyRange: types.KeyRange{Lo: s1.KeyRange.Lo, Hi: s2.KeyRange.Hi},
		Replicas: s1.Replicas, Primary: s1.Primary, Status: types.ShardInitializing,
		CreatedAt: now, LastModified: now,
	}
	m.mu.Unlock()

	if migrateFn != nil {
		if err := migrateFn(s1, s2, merged); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	merged.Status = types.ShardActive
	m.shards[mergedID] = merged
	s1.Status = types.ShardDecommission
	s2.Status = types.ShardDecommission
	m.mu.Unlock()

	return merged, nil
}

func sameReplicaSet(a, b []types.NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[types.NodeID]bool, len(a))
	for _, n := range a {
		set[n] = true
	}
	for _, n := range b {
		if !set[n] {
			return false
		}
	}
	return true
}

// All returns a snapshot of every tracked shard, for the rebalancer
// and hot-shard detector to scan.
func (m *Manager) All() []*Shard {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Shard, 0, len(m.shards))
	for _, s := range m.shards {
		out = append(out, s)
	}
	return out
}
