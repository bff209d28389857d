package proxy

import (
	"sync"
	"time"

	"github.com/hypermesh/stoq/pkg/bus"
	"github.com/hypermesh/stoq/pkg/types"
)

// Config bounds address allocation.
type Config struct {
	NetworkID   [16]byte
	MinTrust    float64
	PortRangeLo uint16
	PortRangeHi uint16
}

// DefaultConfig returns sensible allocation bounds.
func DefaultConfig(networkID [16]byte) Config {
	return Config{
		NetworkID:   networkID,
		MinTrust:    0.5,
		PortRangeLo: 20000,
		PortRangeHi: 40000,
	}
}

type mapping struct {
	Asset    types.AssetID
	IssuedAt time.Time
}

// Resolver is the forward/reverse address mapping plus the proxy node
// registry. It satisfies allocate/resolve/get_address/release.
type Resolver struct {
	cfg Config

	mu      sync.RWMutex
	forward map[types.ProxyAddressKey]mapping
	reverse map[types.AssetID]types.ProxyAddress
	nodes   map[[8]byte]*NodeInfo
	used    map[[8]byte]map[uint16]bool
}

// NewResolver creates an empty resolver.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{
		cfg:     cfg,
		forward: make(map[types.ProxyAddressKey]mapping),
		reverse: make(map[types.AssetID]types.ProxyAddress),
		nodes:   make(map[[8]byte]*NodeInfo),
		used:    make(map[[8]byte]map[uint16]bool),
	}
}

// RegisterNode adds or replaces a proxy node in the registry.
func (r *Resolver) RegisterNode(n NodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node := n
	r.nodes[n.NodeID] = &node
}

// Heartbeat updates a node's last-seen time.
func (r *Resolver) Heartbeat(nodeID [8]byte, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[nodeID]; ok {
		n.LastHeartbeat = at
	}
}

// Allocate selects a proxy node, assigns the lowest free port on it,
// and installs the forward/reverse mapping for asset.
func (r *Resolver) Allocate(asset types.AssetID) (types.ProxyAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := bestNode(r.nodes, r.cfg.MinTrust)
	if !ok {
		return types.ProxyAddress{}, ErrNoSuitableNode
	}

	port, ok := r.firstFreePort(node.NodeID)
	if !ok {
		return types.ProxyAddress{}, ErrPortRangeExhausted
	}

	issuedAt := time.Now()
	addr := types.ProxyAddress{
		NetworkID: r.cfg.NetworkID,
		NodeID:    node.NodeID,
		Port:      port,
	}
	addr.AccessToken = deriveAccessToken(addr.NetworkID, addr.NodeID, addr.Port, issuedAt)

	r.forward[addr.Key()] = mapping{Asset: asset, IssuedAt: issuedAt}
	r.reverse[asset] = addr
	if r.used[node.NodeID] == nil {
		r.used[node.NodeID] = make(map[uint16]bool)
	}
	r.used[node.NodeID][port] = true

	bus.Publish(bus.Event{Kind: bus.KindProxyAllocated, Address: addr})
	return addr, nil
}

func (r *Resolver) firstFreePort(nodeID [8]byte) (uint16, bool) {
	used := r.used[nodeID]
	for p := r.cfg.PortRangeLo; p <= r.cfg.PortRangeHi; p++ {
		if used == nil || !used[p] {
			return p, true
		}
		if p == r.cfg.PortRangeHi {
			break
		}
	}
	return 0, false
}

// Resolve looks up the asset behind a proxy address, verifying the
// access token was derived by this resolver's issuance record.
func (r *Resolver) Resolve(addr types.ProxyAddress) (types.AssetID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.forward[addr.Key()]
	if !ok {
		return types.AssetID{}, ErrAddressNotFound
	}
	expected := deriveAccessToken(addr.NetworkID, addr.NodeID, addr.Port, m.IssuedAt)
	if expected != addr.AccessToken {
		return types.AssetID{}, ErrInvalidToken
	}
	return m.Asset, nil
}

// GetAddress returns the proxy address currently mapped to asset.
func (r *Resolver) GetAddress(asset types.AssetID) (types.ProxyAddress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.reverse[asset]
	if !ok {
		return types.ProxyAddress{}, ErrAssetNotMapped
	}
	return addr, nil
}

// Release atomically removes both mappings for asset. Subsequent
// Resolve/GetAddress calls fail with ErrAddressNotFound/ErrAssetNotMapped.
func (r *Resolver) Release(asset types.AssetID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr, ok := r.reverse[asset]
	if !ok {
		return ErrAssetNotMapped
	}
	delete(r.reverse, asset)
	delete(r.forward, addr.Key())
	if used := r.used[addr.NodeID]; used != nil {
		delete(used, addr.Port)
	}

	bus.Publish(bus.Event{Kind: bus.KindProxyReleased, Address: addr})
	return nil
}
