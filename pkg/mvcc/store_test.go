package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/hypermesh/stoq/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	bs, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })
	s, err := Open(bs)
	require.NoError(t, err)
	return s
}

func TestInstallAndReadAt(t *testing.T) {
	s := newTestStore(t)
	txn := types.NewTxnID()

	require.NoError(t, s.Install(map[string][]byte{"k1": []byte("v1")}, txn, 10))

	val, startTs, ok, err := s.ReadAt([]byte("k1"), 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), val)
	require.Equal(t, uint64(10), startTs)

	_, _, ok, err = s.ReadAt([]byte("k1"), 5)
	require.NoError(t, err)
	require.False(t, ok, "a version must not be visible before its start_ts")
}

func TestInstallShadowsPreviousVersion(t *testing.T) {
	s := newTestStore(t)
	txn := types.NewTxnID()

	require.NoError(t, s.Install(map[string][]byte{"k1": []byte("v1")}, txn, 10))
	require.NoError(t, s.Install(map[string][]byte{"k1": []byte("v2")}, txn, 20))

	val, _, ok, err := s.ReadAt([]byte("k1"), 15)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), val, "a read between the two commits must see the shadowed version")

	val, _, ok, err = s.ReadAt([]byte("k1"), 20)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), val)

	val, _, ok, err = s.ReadLatestCommitted([]byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), val)
}

func TestTrimBeforeKeepsLiveVersions(t *testing.T) {
	s := newTestStore(t)
	txn := types.NewTxnID()

	require.NoError(t, s.Install(map[string][]byte{"k1": []byte("v1")}, txn, 10))
	require.NoError(t, s.Install(map[string][]byte{"k1": []byte("v2")}, txn, 20))
	require.NoError(t, s.Install(map[string][]byte{"k1": []byte("v3")}, txn, 30))

	require.NoError(t, s.TrimBefore(21))

	_, _, ok, err := s.ReadAt([]byte("k1"), 15)
	require.NoError(t, err)
	require.False(t, ok, "the version ending before the watermark should be gone")

	val, _, ok, err := s.ReadAt([]byte("k1"), 25)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), val)
}

func TestTimestampOracleMonotonic(t *testing.T) {
	o := NewTimestampOracle()
	a := o.Next()
	b := o.Next()
	require.Less(t, a, b)
}
