package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoltStorePutGetDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer store.Close()

	b, err := store.Bucket("widgets")
	require.NoError(t, err)

	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	v, err := b.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, b.Delete([]byte("a")))
	v, err = b.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestBoltStoreTransactionalMultiBucket(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer store.Close()

	err = store.Update(func(tx Tx) error {
		fwd, err := tx.Bucket("forward")
		if err != nil {
			return err
		}
		rev, err := tx.Bucket("reverse")
		if err != nil {
			return err
		}
		if err := fwd.Put([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return rev.Put([]byte("v"), []byte("k"))
	})
	require.NoError(t, err)

	store.View(func(tx Tx) error {
		fwd, _ := tx.Bucket("forward")
		v, _ := fwd.Get([]byte("k"))
		require.Equal(t, []byte("v"), v)
		return nil
	})
}
