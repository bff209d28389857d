package transport

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// shardSetTTL is how long an incomplete fragment set is kept before
// being dropped.
const shardSetTTL = 30 * time.Second

type shardSet struct {
	total    uint32
	pieces   map[uint32][]byte
	lastSeen time.Time
}

// Reassembler buffers ShardFrame fragments keyed by shard id until a
// complete, hash-verified set arrives.
type Reassembler struct {
	mu   sync.Mutex
	sets map[uint32]*shardSet
	now  func() time.Time
}

// NewReassembler creates an empty reassembler using the real clock.
func NewReassembler() *Reassembler {
	return &Reassembler{sets: make(map[uint32]*shardSet), now: time.Now}
}

// Add ingests one fragment. It returns the reassembled payload once the
// last fragment of its set arrives and the combined hash matches; nil,
// nil otherwise.
func (r *Reassembler) Add(f *ShardFrame) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictExpiredLocked(now)

	set, ok := r.sets[f.ShardID]
	if !ok {
		set = &shardSet{total: f.Total, pieces: make(map[uint32][]byte)}
		r.sets[f.ShardID] = set
	}
	if set.total != f.Total {
		return nil, fmt.Errorf("transport: shard %d total mismatch (%d vs %d)", f.ShardID, set.total, f.Total)
	}
	set.pieces[f.Seq] = f.Data
	set.lastSeen = now

	if uint32(len(set.pieces)) < set.total {
		return nil, nil
	}

	var payload []byte
	for i := uint32(0); i < set.total; i++ {
		piece, ok := set.pieces[i]
		if !ok {
			return nil, nil // gap; wait for more fragments
		}
		payload = append(payload, piece...)
	}

	if sha256.Sum256(payload) != f.PacketHash {
		delete(r.sets, f.ShardID)
		return nil, fmt.Errorf("transport: shard %d reassembled payload hash mismatch", f.ShardID)
	}

	delete(r.sets, f.ShardID)
	return payload, nil
}

// evictExpiredLocked drops fragment sets older than shardSetTTL.
// Called with mu held.
func (r *Reassembler) evictExpiredLocked(now time.Time) {
	for id, set := range r.sets {
		if now.Sub(set.lastSeen) > shardSetTTL {
			delete(r.sets, id)
		}
	}
}
