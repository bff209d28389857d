package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/mvcc"
	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/hypermesh/stoq/pkg/types"
)

func newTestParticipant(t *testing.T, shard types.ShardID) (Participant, *mvcc.Store) {
	t.Helper()
	bs, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	store, err := mvcc.Open(bs)
	require.NoError(t, err)

	var applier *ParticipantApplier
	applier = NewParticipantApplier(store.Install)

	lb := &loopbackProposer{apply: func(e consensus.LogEntry) error { return applier.Apply(e) }}
	return Participant{Shard: shard, Propose: lb}, store
}

func TestDistributedCommitInstallsOnBothShards(t *testing.T) {
	c := NewCoordinator()

	p1, store1 := newTestParticipant(t, types.ShardID("s1"))
	p2, store2 := newTestParticipant(t, types.ShardID("s2"))
	participants := []Participant{p1, p2}

	id := c.Begin([]types.ShardID{p1.Shard, p2.Shard})
	require.NoError(t, c.Write(id, p1.Shard, "a", []byte("1")))
	require.NoError(t, c.Write(id, p2.Shard, "b", []byte("2")))

	ok, err := c.Prepare(id, participants)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Commit(id, p1.Propose, participants, 100))

	v, _, found, err := store1.ReadAt([]byte("a"), 100)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), v)

	v, _, found, err = store2.ReadAt([]byte("b"), 100)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("2"), v)
}

func TestDistributedAbortInstallsNothing(t *testing.T) {
	c := NewCoordinator()

	p1, store1 := newTestParticipant(t, types.ShardID("s1"))
	participants := []Participant{p1}

	id := c.Begin([]types.ShardID{p1.Shard})
	require.NoError(t, c.Write(id, p1.Shard, "a", []byte("1")))

	ok, err := c.Prepare(id, participants)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Abort(id, participants))

	_, _, found, err := store1.ReadAt([]byte("a"), 1)
	require.NoError(t, err)
	require.False(t, found)
}
