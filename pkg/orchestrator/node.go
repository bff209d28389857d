package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/hypermesh/stoq/pkg/bft"
	"github.com/hypermesh/stoq/pkg/bus"
	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/consensuslog"
	"github.com/hypermesh/stoq/pkg/health"
	"github.com/hypermesh/stoq/pkg/metrics"
	"github.com/hypermesh/stoq/pkg/mvcc"
	"github.com/hypermesh/stoq/pkg/proxy"
	"github.com/hypermesh/stoq/pkg/security"
	"github.com/hypermesh/stoq/pkg/shard"
	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/hypermesh/stoq/pkg/transport"
	"github.com/hypermesh/stoq/pkg/trustroot"
	"github.com/hypermesh/stoq/pkg/txn"
	"github.com/hypermesh/stoq/pkg/types"
)

// Node is one cluster member: every subsystem this module provides,
// assembled and given a single Start/Stop lifecycle. pkg/api talks to
// a Node rather than to any one subsystem directly.
type Node struct {
	cfg Config

	store     *storage.BoltStore
	trustRoot *security.TrustRoot
	names     *trustroot.Resolver

	endpoint  *transport.Endpoint
	pool      *transport.Pool
	transport *consensusTransport

	log    *consensuslog.Log
	engine *consensus.Engine
	bft    *bft.Monitor

	mvccStore *mvcc.Store
	oracle    *mvcc.TimestampOracle
	reads     *mvcc.ReadTsTracker
	gc        *mvcc.GC

	txns        *txn.Manager
	coordinator *txn.Coordinator

	shards *shard.Manager

	proxyResolver *proxy.Resolver
	forwarder     *proxy.Forwarder

	metrics *metrics.Collector

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New assembles a Node from cfg. It opens (or creates) the on-disk
// store, initializes the trust root on first run, opens the transport
// listener, and wires every subsystem together, but does not start any
// background loop or accept connections — call Start for that.
func New(cfg Config) (*Node, error) {
	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open store: %w", err)
	}

	trustRoot, err := security.NewTrustRoot(store)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open trust root: %w", err)
	}
	// The root key is sealed at rest under a key derived from the
	// cluster's network id.
	if err := security.SetClusterEncryptionKey(security.DeriveKeyFromClusterID(fmt.Sprintf("%x", cfg.NetworkID))); err != nil {
		return nil, fmt.Errorf("orchestrator: set cluster encryption key: %w", err)
	}
	if err := trustRoot.LoadFromStore(); err != nil {
		if err := trustRoot.Initialize(); err != nil {
			return nil, fmt.Errorf("orchestrator: initialize trust root: %w", err)
		}
		if err := trustRoot.SaveToStore(); err != nil {
			return nil, fmt.Errorf("orchestrator: persist trust root: %w", err)
		}
	}

	names, err := trustroot.NewResolver(store, "stoq.internal")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open name resolver: %w", err)
	}

	clog, err := consensuslog.Open(store)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open consensus log: %w", err)
	}

	mvccStore, err := mvcc.Open(store)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open mvcc store: %w", err)
	}

	members := make([]types.NodeID, 0, len(cfg.Peers))
	for id := range cfg.Peers {
		members = append(members, id)
	}

	endpoint, err := transport.NewEndpoint(trustRoot, names, string(cfg.Self), cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build endpoint: %w", err)
	}
	if err := endpoint.Listen(cfg.BindAddr, cfg.Port); err != nil {
		return nil, fmt.Errorf("orchestrator: listen: %w", err)
	}
	pool := transport.NewPool(endpoint)
	ct := newConsensusTransport(pool, cfg.Peers)

	totalNodes := func() int { return len(members) }
	monitor := bft.NewMonitor(totalNodes, cfg.KnownBadPatterns)

	oracle := mvcc.NewTimestampOracle()
	reads := mvcc.NewReadTsTracker()

	ring := shard.NewConsistentHashRing(cfg.HashAlgorithm, cfg.VirtualNodesPerNode)
	shards := shard.NewManager(cfg.Self, ring)

	proxyResolver := proxy.NewResolver(proxy.Config{
		NetworkID:   cfg.NetworkID,
		MinTrust:    0.5,
		PortRangeLo: 20000,
		PortRangeHi: 40000,
	})
	forwarder := proxy.NewForwarder(proxyResolver, trustRoot)

	// The engine needs an Applier at construction; the transaction
	// manager needs the engine, as a Proposer, at its own construction.
	// lazyApplier/lazyProposer break the cycle (see lazy.go).
	applier := &lazyApplier{}
	engine, err := consensus.New(cfg.Self, members, cfg.ConsensusConfig, clog, ct, monitor, applier)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build consensus engine: %w", err)
	}

	txns := txn.NewManager(mvccStore, oracle, reads, &lazyProposer{engine: engine})
	applier.target = txns

	n := &Node{
		cfg:           cfg,
		store:         store,
		trustRoot:     trustRoot,
		names:         names,
		endpoint:      endpoint,
		pool:          pool,
		transport:     ct,
		log:           clog,
		engine:        engine,
		bft:           monitor,
		mvccStore:     mvccStore,
		oracle:        oracle,
		reads:         reads,
		txns:          txns,
		coordinator:   txn.NewCoordinator(),
		shards:        shards,
		proxyResolver: proxyResolver,
		forwarder:     forwarder,
		metrics:       metrics.NewCollector(engine, shards),
		gc:            mvcc.NewGC(mvccStore, reads, oracle, cfg.GCLag, cfg.GCInterval),
		stopCh:        make(chan struct{}),
	}

	return n, nil
}

// Start launches every background loop: the consensus election
// watchdog, the accept loop for inbound peer
// connections, the MVCC garbage collector, and the metrics collector.
func (n *Node) Start(ctx context.Context) {
	n.engine.Start()
	n.metrics.Start()

	n.wg.Add(1)
	go n.acceptLoop(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.gc.Run(ctx)
	}()

	bus.Publish(bus.Event{Kind: bus.KindLeaderChanged, Node: n.cfg.Self, Reason: "node started"})
}

// Stop halts every background loop and closes the transport endpoint
// and on-disk store. It blocks until all loops have exited.
func (n *Node) Stop() {
	close(n.stopCh)
	n.engine.Stop()
	n.metrics.Stop()
	n.pool.CloseAll()
	n.endpoint.Close()
	n.wg.Wait()
	n.store.Close()
}

// IsLeader reports whether this node currently believes itself to be
// the cluster leader.
func (n *Node) IsLeader() bool {
	return n.engine.State() == consensus.Leader
}

// ID returns this node's identity.
func (n *Node) ID() types.NodeID { return n.cfg.Self }

// LeaderID returns the node this engine currently believes leads the
// cluster, or "" if no leader has been observed yet.
func (n *Node) LeaderID() types.NodeID { return n.engine.LeaderID() }

// LeaderAddr resolves the current leader's transport address through
// the configured peer list, or false if the leader is unknown or not a
// configured peer.
func (n *Node) LeaderAddr() (PeerAddr, bool) {
	addr, ok := n.cfg.Peers[n.engine.LeaderID()]
	return addr, ok
}

// Status summarizes the node for the cluster-status API endpoint.
type Status struct {
	NodeID        types.NodeID
	State         string
	Term          types.Term
	CommitIndex   types.LogIndex
	AppliedIndex  types.LogIndex
	PeerCount     int
	Shards        int
	IsolatedPeers int
}

// ClusterStatus reports the node's consensus, shard, and Byzantine
// isolation state in one snapshot.
func (n *Node) ClusterStatus() Status {
	isolated := 0
	for id := range n.cfg.Peers {
		if n.bft.IsIsolated(id) {
			isolated++
		}
	}
	return Status{
		NodeID:        n.cfg.Self,
		State:         n.engine.State().String(),
		Term:          n.engine.CurrentTerm(),
		CommitIndex:   n.engine.CommitIndex(),
		AppliedIndex:  n.engine.AppliedIndex(),
		PeerCount:     n.engine.PeerCount(),
		Shards:        len(n.shards.All()),
		IsolatedPeers: isolated,
	}
}

// Peers returns the node ids of every configured cluster member other
// than this one, for pkg/api's isolation-listing handler.
func (n *Node) Peers() []types.NodeID {
	ids := make([]types.NodeID, 0, len(n.cfg.Peers))
	for id := range n.cfg.Peers {
		if id == n.cfg.Self {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Transactions exposes the single-shard transaction manager for
// pkg/api's begin/read/write/commit/rollback handlers.
func (n *Node) Transactions() *txn.Manager { return n.txns }

// Shards exposes the shard manager for pkg/api's listing and
// rebalancing handlers.
func (n *Node) Shards() *shard.Manager { return n.shards }

// ProxyResolver exposes the proxy overlay for pkg/api's allocate,
// resolve and release handlers.
func (n *Node) ProxyResolver() *proxy.Resolver { return n.proxyResolver }

// Forwarder exposes the proxy forwarder so pkg/api can authenticate and
// route a forwarded connection.
func (n *Node) Forwarder() *proxy.Forwarder { return n.forwarder }

// Coordinator exposes the cross-shard two-phase commit coordinator.
func (n *Node) Coordinator() *txn.Coordinator { return n.coordinator }

// BFT exposes the Byzantine-fault monitor for pkg/api's isolation and
// reputation endpoints.
func (n *Node) BFT() *bft.Monitor { return n.bft }

// DestinationHealthConfig is the health-check configuration new
// destinations are tracked with, by default.
func (n *Node) DestinationHealthConfig() health.Config { return n.cfg.DestinationCheck }

// TrustRoot exposes the node's certificate authority so cmd/stoqd can
// issue and persist the node certificate pkg/api's TLS listener serves.
func (n *Node) TrustRoot() *security.TrustRoot { return n.trustRoot }
