package consensuslog

import (
	"testing"

	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/hypermesh/stoq/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	l, err := Open(store)
	require.NoError(t, err)
	return l
}

func TestAppendAndGet(t *testing.T) {
	l := newTestLog(t)

	e, err := l.Append(1, "put", []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, types.LogIndex(1), e.Index)

	got, err := l.Get(1)
	require.NoError(t, err)
	require.Equal(t, e.Op, got.Op)
	require.Equal(t, e.Payload, got.Payload)
}

func TestMetadataRoundTrip(t *testing.T) {
	l := newTestLog(t)

	require.NoError(t, l.SaveMetadata(Metadata{CurrentTerm: 4, VotedFor: "node-2", CommitIndex: 3}))
	meta, err := l.LoadMetadata()
	require.NoError(t, err)
	require.Equal(t, types.Term(4), meta.CurrentTerm)
	require.Equal(t, "node-2", meta.VotedFor)
	require.Equal(t, types.LogIndex(3), meta.CommitIndex)
}

func TestTruncateAfter(t *testing.T) {
	l := newTestLog(t)

	for i := 0; i < 5; i++ {
		_, err := l.Append(1, "put", []byte("x"))
		require.NoError(t, err)
	}
	require.Equal(t, types.LogIndex(5), l.LastIndex())

	require.NoError(t, l.TruncateAfter(2))
	require.Equal(t, types.LogIndex(2), l.LastIndex())

	_, err := l.Get(3)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetDetectsCorruption(t *testing.T) {
	l := newTestLog(t)
	_, err := l.Append(1, "put", []byte("payload"))
	require.NoError(t, err)

	store := l.store
	require.NoError(t, store.Update(func(tx storage.Tx) error {
		b, err := tx.Bucket(entryBucket)
		if err != nil {
			return err
		}
		raw, err := b.Get(indexKey(1))
		if err != nil {
			return err
		}
		tampered := append([]byte(nil), raw...)
		tampered[len(tampered)-1] ^= 0xFF
		return b.Put(indexKey(1), tampered)
	}))

	_, err = l.Get(1)
	require.ErrorIs(t, err, ErrCorruption)
}
