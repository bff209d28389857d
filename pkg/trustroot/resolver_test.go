package trustroot

import (
	"net"
	"testing"

	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	r, err := NewResolver(store, "stoq")
	require.NoError(t, err)
	return r
}

func TestRegisterAndResolve(t *testing.T) {
	r := newTestResolver(t)

	require.NoError(t, r.Register("node-1", []net.IP{net.ParseIP("fd00::1")}))

	ips, err := r.Resolve("node-1.stoq")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	require.Equal(t, "fd00::1", ips[0].String())

	ips, err = r.Resolve("node-1")
	require.NoError(t, err)
	require.Len(t, ips, 1)
}

func TestResolveUnknownNameFails(t *testing.T) {
	r := newTestResolver(t)

	_, err := r.Resolve("ghost")
	require.ErrorIs(t, err, ErrDnsFailure)
}

func TestRegisterRejectsIPv4(t *testing.T) {
	r := newTestResolver(t)

	err := r.Register("node-2", []net.IP{net.ParseIP("10.0.0.1")})
	require.ErrorIs(t, err, ErrNotIPv6)
}

func TestUnregisterRemovesRecord(t *testing.T) {
	r := newTestResolver(t)

	require.NoError(t, r.Register("node-3", []net.IP{net.ParseIP("fd00::3")}))
	require.NoError(t, r.Unregister("node-3"))

	_, err := r.Resolve("node-3")
	require.ErrorIs(t, err, ErrDnsFailure)
}

func TestRegisterOverwritesPreviousAddresses(t *testing.T) {
	r := newTestResolver(t)

	require.NoError(t, r.Register("node-4", []net.IP{net.ParseIP("fd00::4")}))
	require.NoError(t, r.Register("node-4", []net.IP{net.ParseIP("fd00::5")}))

	ips, err := r.Resolve("node-4")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	require.Equal(t, "fd00::5", ips[0].String())
}
