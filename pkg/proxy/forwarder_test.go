package proxy

import (
	"context"
	"crypto/x509"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermesh/stoq/pkg/health"
	"github.com/hypermesh/stoq/pkg/types"
)

type alwaysTrust struct{ err error }

func (a alwaysTrust) VerifyCertificate(cert *x509.Certificate) error { return a.err }

type fixedChecker struct{ healthy bool }

func (f fixedChecker) Check(ctx context.Context) health.Result { return health.Result{Healthy: f.healthy} }
func (f fixedChecker) Type() health.CheckType                  { return health.CheckTypeTCP }

// newProbedDest builds a destination and probes it once so its tracker
// reflects checker's current answer before the test inspects State().
func newProbedDest(id string, healthy bool, retries int) *Destination {
	cfg := health.DefaultConfig()
	cfg.Retries = retries
	d := NewDestination(id, id+":80", 1, fixedChecker{healthy: healthy}, cfg)
	d.Tracker().Probe(context.Background())
	return d
}

func TestSelectDestinationPrefersPrimaryWhenHealthy(t *testing.T) {
	asset := types.AssetID{Kind: types.AssetCPU, ID: "a"}
	r := newTestResolver()
	f := NewForwarder(r, alwaysTrust{})

	primary := newProbedDest("p", true, 3)
	f.SetRoute(asset, &Route{Primary: primary})

	dest, err := f.SelectDestination(asset)
	require.NoError(t, err)
	require.Equal(t, "p", dest.ID)
}

func TestSelectDestinationFailsOverToBackup(t *testing.T) {
	asset := types.AssetID{Kind: types.AssetCPU, ID: "a"}
	r := newTestResolver()
	f := NewForwarder(r, alwaysTrust{})

	primary := newProbedDest("p", false, 1)
	backup := newProbedDest("b", true, 3)
	f.SetRoute(asset, &Route{Primary: primary, Backups: []*Destination{backup}})

	dest, err := f.SelectDestination(asset)
	require.NoError(t, err)
	require.Equal(t, "b", dest.ID)
}

func TestSelectDestinationNoHealthyReturnsError(t *testing.T) {
	asset := types.AssetID{Kind: types.AssetCPU, ID: "a"}
	r := newTestResolver()
	f := NewForwarder(r, alwaysTrust{})

	primary := newProbedDest("p", false, 1)
	f.SetRoute(asset, &Route{Primary: primary})

	_, err := f.SelectDestination(asset)
	require.ErrorIs(t, err, ErrNoHealthyDestination)
}

func TestAuthenticateRejectsUntrustedPeer(t *testing.T) {
	r := newTestResolver()
	f := NewForwarder(r, alwaysTrust{err: errors.New("untrusted")})

	asset := types.AssetID{Kind: types.AssetCPU, ID: "a"}
	addr, err := r.Allocate(asset)
	require.NoError(t, err)

	_, err = f.Authenticate(&x509.Certificate{}, addr)
	require.ErrorIs(t, err, ErrPeerNotTrusted)
}

func TestAuthenticateResolvesAssetForTrustedPeer(t *testing.T) {
	r := newTestResolver()
	f := NewForwarder(r, alwaysTrust{})

	asset := types.AssetID{Kind: types.AssetCPU, ID: "a"}
	addr, err := r.Allocate(asset)
	require.NoError(t, err)

	got, err := f.Authenticate(&x509.Certificate{}, addr)
	require.NoError(t, err)
	require.Equal(t, asset, got)
}
