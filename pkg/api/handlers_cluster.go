package api

import (
	"net/http"

	"github.com/hypermesh/stoq/pkg/types"
)

func (s *Server) handleClusterStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.node.ClusterStatus())
}

type shardView struct {
	ID        types.ShardID    `json:"id"`
	Primary   types.NodeID     `json:"primary"`
	Replicas  []types.NodeID   `json:"replicas"`
	Status    types.ShardStatus `json:"status"`
	KeyCount  uint64           `json:"key_count"`
	SizeBytes uint64           `json:"size_bytes"`
}

func (s *Server) handleListShards(w http.ResponseWriter, r *http.Request) {
	shards := s.node.Shards().All()
	views := make([]shardView, 0, len(shards))
	for _, sh := range shards {
		views = append(views, shardView{
			ID:        sh.ID,
			Primary:   sh.Primary,
			Replicas:  sh.Replicas,
			Status:    sh.Status,
			KeyCount:  sh.Stats.KeyCount,
			SizeBytes: sh.Stats.SizeBytes,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type isolatedPeerView struct {
	NodeID     types.NodeID `json:"node_id"`
	Reputation float64      `json:"reputation"`
}

func (s *Server) handleListIsolated(w http.ResponseWriter, r *http.Request) {
	monitor := s.node.BFT()
	isolated := make([]isolatedPeerView, 0)
	for _, id := range s.node.Peers() {
		if monitor.IsIsolated(id) {
			isolated = append(isolated, isolatedPeerView{
				NodeID:     id,
				Reputation: monitor.Reputation(id),
			})
		}
	}
	writeJSON(w, http.StatusOK, isolated)
}
