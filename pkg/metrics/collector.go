package metrics

import (
	"time"

	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/shard"
)

// Collector periodically samples long-lived node components and
// publishes their state as gauges.
type Collector struct {
	engine   *consensus.Engine
	shards   *shard.Manager
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a collector over the given node components. shards
// may be nil on a node that does not host the shard-routing role.
func NewCollector(engine *consensus.Engine, shards *shard.Manager) *Collector {
	return &Collector{
		engine:   engine,
		shards:   shards,
		interval: 15 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins periodic collection in the background.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts periodic collection.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectConsensusMetrics()
	c.collectShardMetrics()
}

func (c *Collector) collectConsensusMetrics() {
	if c.engine == nil {
		return
	}

	ConsensusTerm.Set(float64(c.engine.CurrentTerm()))
	ConsensusCommitIndex.Set(float64(c.engine.CommitIndex()))
	ConsensusAppliedIndex.Set(float64(c.engine.AppliedIndex()))
	ConsensusPeersTotal.Set(float64(c.engine.PeerCount()))

	if c.engine.State() == consensus.Leader {
		ConsensusIsLeader.Set(1)
	} else {
		ConsensusIsLeader.Set(0)
	}
}

func (c *Collector) collectShardMetrics() {
	if c.shards == nil {
		return
	}

	counts := make(map[string]int)
	for _, s := range c.shards.All() {
		counts[string(s.Status)]++
	}
	for status, count := range counts {
		ShardsTotal.WithLabelValues(status).Set(float64(count))
	}
}
