package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/transport"
	"github.com/hypermesh/stoq/pkg/types"
)

// consensusTransport is the consensus.Transport implementation over
// pkg/transport: every message is one QUIC bidirectional stream,
// opened, written as a single JSON payload, and half-closed so the
// reader's io.ReadAll sees a natural EOF. There is no reply on the
// same stream: a handler that produces a response message sends it
// back as an independent Send call (see dispatchConsensus in server.go), the
// same asymmetry the engine itself assumes of Transport.
type consensusTransport struct {
	pool  *transport.Pool
	peers map[types.NodeID]PeerAddr
}

func newConsensusTransport(pool *transport.Pool, peers map[types.NodeID]PeerAddr) *consensusTransport {
	return &consensusTransport{pool: pool, peers: peers}
}

func (t *consensusTransport) Send(ctx context.Context, to types.NodeID, msg consensus.Message) error {
	addr, ok := t.peers[to]
	if !ok {
		return fmt.Errorf("orchestrator: no known address for peer %s", to)
	}

	conn, err := t.pool.Get(ctx, addr.Host, addr.Port)
	if err != nil {
		return fmt.Errorf("orchestrator: dial %s: %w", to, err)
	}

	stream, err := conn.OpenBi(ctx)
	if err != nil {
		t.pool.Evict(addr.Host)
		return fmt.Errorf("orchestrator: open stream to %s: %w", to, err)
	}

	payload, err := json.Marshal(streamEnvelope{Kind: envelopeConsensus, Consensus: &msg})
	if err != nil {
		return fmt.Errorf("orchestrator: encode message for %s: %w", to, err)
	}
	if _, err := stream.Write(payload); err != nil {
		return fmt.Errorf("orchestrator: write to %s: %w", to, err)
	}
	return stream.Close()
}

// envelopeKind tags a stream payload so the accept loop can dispatch
// without guessing from shape; consensus RPC is the only kind carried
// today but orchestrator-level control messages (future membership
// changes) can add one without redefining the wire format.
type envelopeKind string

const envelopeConsensus envelopeKind = "consensus"

type streamEnvelope struct {
	Kind      envelopeKind       `json:"kind"`
	Consensus *consensus.Message `json:"consensus,omitempty"`
}

// readEnvelope reads one full stream payload; quic-go streams have no
// inherent message boundary, so the writer's half-close (stream.Close)
// is what produces the EOF readEnvelope waits for.
func readEnvelope(r io.Reader) (streamEnvelope, error) {
	var env streamEnvelope
	b, err := io.ReadAll(r)
	if err != nil {
		return env, fmt.Errorf("orchestrator: read stream: %w", err)
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("orchestrator: decode stream: %w", err)
	}
	return env, nil
}
