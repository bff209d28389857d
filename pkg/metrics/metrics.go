package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Consensus metrics
	ConsensusTerm = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_consensus_term",
			Help: "Current consensus term observed by this node",
		},
	)

	ConsensusIsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_consensus_is_leader",
			Help: "Whether this node is the consensus leader (1 = leader, 0 = follower)",
		},
	)

	ConsensusCommitIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_consensus_commit_index",
			Help: "Highest log index known to be committed",
		},
	)

	ConsensusAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_consensus_applied_index",
			Help: "Highest log index applied to the state machine",
		},
	)

	ConsensusPeersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_consensus_peers_total",
			Help: "Total number of consensus peers known to this node",
		},
	)

	ConsensusProposeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stoq_consensus_propose_duration_seconds",
			Help:    "Time taken for a proposal to commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	// MVCC / transaction metrics
	MVCCVersionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_mvcc_versions_total",
			Help: "Total number of version-chain entries retained across all keys",
		},
	)

	MVCCGCWatermark = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_mvcc_gc_watermark",
			Help: "Logical timestamp below which versions are eligible for collection",
		},
	)

	TxnCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stoq_txn_commits_total",
			Help: "Total number of transaction commit attempts by outcome",
		},
		[]string{"isolation", "outcome"},
	)

	TxnCommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stoq_txn_commit_duration_seconds",
			Help:    "Time taken for a transaction commit to resolve",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"isolation"},
	)

	// Shard metrics
	ShardsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stoq_shards_total",
			Help: "Total number of shards owned by this node by status",
		},
		[]string{"status"},
	)

	HotShardsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_hot_shards_total",
			Help: "Number of shards currently flagged as hot",
		},
	)

	ShardMigrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stoq_shard_migrations_total",
			Help: "Total number of shard split/merge migrations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Byzantine fault detection metrics
	BFTIsolatedNodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_bft_isolated_nodes_total",
			Help: "Number of peers currently isolated at any level",
		},
	)

	BFTAverageReputation = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_bft_average_reputation",
			Help: "Average reputation score across observed peers",
		},
	)

	BFTAnomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stoq_bft_anomalies_total",
			Help: "Total number of behavioral anomalies detected by category",
		},
		[]string{"category"},
	)

	// Proxy overlay metrics
	ProxyAllocationsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_proxy_allocations_total",
			Help: "Total number of active proxy address allocations",
		},
	)

	ProxyDestinationHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stoq_proxy_destination_health",
			Help: "Health state of a proxy destination (0=unhealthy, 1=degraded, 2=healthy)",
		},
		[]string{"destination"},
	)

	ProxyForwardedBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stoq_proxy_forwarded_bytes_total",
			Help: "Total bytes forwarded through the proxy overlay by direction",
		},
		[]string{"direction"},
	)

	// Transport metrics
	TransportConnectionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stoq_transport_connections_total",
			Help: "Total number of open QUIC connections",
		},
	)

	TransportHandshakeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stoq_transport_handshake_duration_seconds",
			Help:    "Time taken to complete a QUIC handshake",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stoq_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stoq_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(ConsensusTerm)
	prometheus.MustRegister(ConsensusIsLeader)
	prometheus.MustRegister(ConsensusCommitIndex)
	prometheus.MustRegister(ConsensusAppliedIndex)
	prometheus.MustRegister(ConsensusPeersTotal)
	prometheus.MustRegister(ConsensusProposeDuration)

	prometheus.MustRegister(MVCCVersionsTotal)
	prometheus.MustRegister(MVCCGCWatermark)
	prometheus.MustRegister(TxnCommitsTotal)
	prometheus.MustRegister(TxnCommitDuration)

	prometheus.MustRegister(ShardsTotal)
	prometheus.MustRegister(HotShardsTotal)
	prometheus.MustRegister(ShardMigrationsTotal)

	prometheus.MustRegister(BFTIsolatedNodesTotal)
	prometheus.MustRegister(BFTAverageReputation)
	prometheus.MustRegister(BFTAnomaliesTotal)

	prometheus.MustRegister(ProxyAllocationsTotal)
	prometheus.MustRegister(ProxyDestinationHealth)
	prometheus.MustRegister(ProxyForwardedBytesTotal)

	prometheus.MustRegister(TransportConnectionsTotal)
	prometheus.MustRegister(TransportHandshakeDuration)

	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
