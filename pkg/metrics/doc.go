// Package metrics exposes Prometheus instrumentation for a stoq node:
// consensus progress, MVCC/transaction throughput, shard placement, Byzantine
// fault detection, the proxy overlay, transport, and the management API.
//
// # Usage
//
// Register the handler on an HTTP mux:
//
//	mux.Handle("/metrics", metrics.Handler())
//
// Update gauges as state changes:
//
//	metrics.ConsensusIsLeader.Set(1)
//	metrics.ShardsTotal.WithLabelValues("active").Set(float64(len(active)))
//
// Time an operation and record it to a histogram:
//
//	timer := metrics.NewTimer()
//	defer timer.ObserveDuration(metrics.ConsensusProposeDuration)
//
// # Metric reference
//
// Consensus:
//
//	stoq_consensus_term
//	stoq_consensus_is_leader
//	stoq_consensus_commit_index
//	stoq_consensus_applied_index
//	stoq_consensus_peers_total
//	stoq_consensus_propose_duration_seconds
//
// MVCC / transactions:
//
//	stoq_mvcc_versions_total
//	stoq_mvcc_gc_watermark
//	stoq_txn_commits_total{isolation, outcome}
//	stoq_txn_commit_duration_seconds{isolation}
//
// Sharding:
//
//	stoq_shards_total{status}
//	stoq_hot_shards_total
//	stoq_shard_migrations_total{kind, outcome}
//
// Byzantine fault detection:
//
//	stoq_bft_isolated_nodes_total
//	stoq_bft_average_reputation
//	stoq_bft_anomalies_total{category}
//
// Proxy overlay:
//
//	stoq_proxy_allocations_total
//	stoq_proxy_destination_health{destination}
//	stoq_proxy_forwarded_bytes_total{direction}
//
// Transport:
//
//	stoq_transport_connections_total
//	stoq_transport_handshake_duration_seconds
//
// API:
//
//	stoq_api_requests_total{method, status}
//	stoq_api_request_duration_seconds{method}
//
// # Useful queries
//
//	Leader churn:        changes(stoq_consensus_is_leader[10m])
//	Apply lag:           stoq_consensus_commit_index - stoq_consensus_applied_index
//	Commit latency p95:  histogram_quantile(0.95, stoq_txn_commit_duration_seconds_bucket)
//	Abort rate:          rate(stoq_txn_commits_total{outcome="abort"}[5m])
//	Hot shard ratio:     stoq_hot_shards_total / sum(stoq_shards_total)
//	Isolated node ratio: stoq_bft_isolated_nodes_total / stoq_consensus_peers_total
//	API error rate:      rate(stoq_api_requests_total{status=~"5.."}[1m])
package metrics
