package proxy

import (
	"crypto/x509"
	"sync"

	"github.com/hypermesh/stoq/pkg/bus"
	"github.com/hypermesh/stoq/pkg/health"
	"github.com/hypermesh/stoq/pkg/types"
)

// CertVerifier validates a peer certificate against the cluster trust
// root. *security.TrustRoot satisfies this.
type CertVerifier interface {
	VerifyCertificate(cert *x509.Certificate) error
}

// Destination is one internal endpoint an asset can be forwarded to.
type Destination struct {
	ID       string
	Endpoint string
	Weight   int
	tracker  *health.DestinationTracker
}

// NewDestination builds a destination whose health is tracked by probing
// checker on cfg's interval. Callers run the returned tracker with
// Tracker().Run(ctx) on a background task.
func NewDestination(id, endpoint string, weight int, checker health.Checker, cfg health.Config) *Destination {
	return &Destination{
		ID:       id,
		Endpoint: endpoint,
		Weight:   weight,
		tracker:  health.NewDestinationTracker(checker, cfg),
	}
}

// Tracker exposes the destination's health tracker so callers can run
// its probe loop.
func (d *Destination) Tracker() *health.DestinationTracker {
	return d.tracker
}

// State returns the destination's current three-level health.
func (d *Destination) State() health.State {
	if d.tracker == nil {
		return health.Degraded
	}
	return d.tracker.State()
}

// Route is the primary destination plus ordered backups for one asset.
type Route struct {
	Primary *Destination
	Backups []*Destination
}

// Forwarder authenticates inbound connections against the trust root
// and the resolver's access-token derivation, then selects a healthy
// destination for the target asset.
type Forwarder struct {
	resolver *Resolver
	trust    CertVerifier

	mu     sync.RWMutex
	routes map[types.AssetID]*Route
}

// NewForwarder builds a forwarder over resolver, authenticating peers
// against trust.
func NewForwarder(resolver *Resolver, trust CertVerifier) *Forwarder {
	return &Forwarder{
		resolver: resolver,
		trust:    trust,
		routes:   make(map[types.AssetID]*Route),
	}
}

// SetRoute installs or replaces the destination set for asset.
func (f *Forwarder) SetRoute(asset types.AssetID, route *Route) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[asset] = route
}

// Authenticate checks the peer certificate against the trust root and
// the proxy address's access token against the resolver's issuance
// record, returning the asset it maps to.
func (f *Forwarder) Authenticate(peerCert *x509.Certificate, addr types.ProxyAddress) (types.AssetID, error) {
	if err := f.trust.VerifyCertificate(peerCert); err != nil {
		return types.AssetID{}, ErrPeerNotTrusted
	}
	return f.resolver.Resolve(addr)
}

// SelectDestination returns the first non-Unhealthy destination for
// asset, preferring the primary and falling back to backups in order.
func (f *Forwarder) SelectDestination(asset types.AssetID) (*Destination, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	route, ok := f.routes[asset]
	if !ok {
		return nil, ErrAssetNotMapped
	}

	if route.Primary != nil && route.Primary.State() != health.Unhealthy {
		return route.Primary, nil
	}
	for _, backup := range route.Backups {
		if backup.State() != health.Unhealthy {
			bus.Publish(bus.Event{Kind: bus.KindDestinationDown, Reason: "primary destination unhealthy, failing over"})
			return backup, nil
		}
	}
	return nil, ErrNoHealthyDestination
}
