package proxy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/types"
)

func newTestResolver() *Resolver {
	r := NewResolver(DefaultConfig([16]byte{1}))
	r.RegisterNode(NodeInfo{
		NodeID:       [8]byte{1},
		TrustScore:   0.9,
		Capabilities: Capabilities{BandwidthMbps: 1000, MaxConnections: 100},
	})
	return r
}

func TestAllocateInstallsBothMappings(t *testing.T) {
	r := newTestResolver()
	asset := types.AssetID{Kind: types.AssetContainer, ID: "c1"}

	addr, err := r.Allocate(asset)
	require.NoError(t, err)

	resolved, err := r.Resolve(addr)
	require.NoError(t, err)
	require.Equal(t, asset, resolved)

	got, err := r.GetAddress(asset)
	require.NoError(t, err)
	require.Equal(t, addr, got)
}

func TestAllocateRejectsWhenNoTrustedNode(t *testing.T) {
	r := NewResolver(DefaultConfig([16]byte{1}))
	r.RegisterNode(NodeInfo{NodeID: [8]byte{1}, TrustScore: 0.1})

	_, err := r.Allocate(types.AssetID{Kind: types.AssetCPU, ID: "x"})
	require.ErrorIs(t, err, ErrNoSuitableNode)
}

func TestAllocatePicksLowestFreePort(t *testing.T) {
	r := newTestResolver()
	r.cfg.PortRangeLo = 100
	r.cfg.PortRangeHi = 102

	a1, err := r.Allocate(types.AssetID{Kind: types.AssetCPU, ID: "a"})
	require.NoError(t, err)
	require.Equal(t, uint16(100), a1.Port)

	a2, err := r.Allocate(types.AssetID{Kind: types.AssetCPU, ID: "b"})
	require.NoError(t, err)
	require.Equal(t, uint16(101), a2.Port)
}

func TestReleaseRemovesBothMappings(t *testing.T) {
	r := newTestResolver()
	asset := types.AssetID{Kind: types.AssetVM, ID: "vm1"}
	addr, err := r.Allocate(asset)
	require.NoError(t, err)

	require.NoError(t, r.Release(asset))

	_, err = r.Resolve(addr)
	require.ErrorIs(t, err, ErrAddressNotFound)

	_, err = r.GetAddress(asset)
	require.ErrorIs(t, err, ErrAssetNotMapped)
}

func TestResolveRejectsTamperedToken(t *testing.T) {
	r := newTestResolver()
	asset := types.AssetID{Kind: types.AssetCPU, ID: "a"}
	addr, err := r.Allocate(asset)
	require.NoError(t, err)

	addr.AccessToken[0] ^= 0xFF
	_, err = r.Resolve(addr)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSelectBestNodeBreaksTiesByBandwidthThenConnections(t *testing.T) {
	r := NewResolver(DefaultConfig([16]byte{1}))
	r.RegisterNode(NodeInfo{NodeID: [8]byte{1}, TrustScore: 0.9, Capabilities: Capabilities{BandwidthMbps: 100, MaxConnections: 10}})
	r.RegisterNode(NodeInfo{NodeID: [8]byte{2}, TrustScore: 0.9, Capabilities: Capabilities{BandwidthMbps: 500, MaxConnections: 5}})

	addr, err := r.Allocate(types.AssetID{Kind: types.AssetCPU, ID: "a"})
	require.NoError(t, err)
	require.Equal(t, [8]byte{2}, addr.NodeID)
}
