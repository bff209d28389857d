package orchestrator

import (
	"context"
	"errors"

	"github.com/hypermesh/stoq/pkg/consensus"
	"github.com/hypermesh/stoq/pkg/log"
	"github.com/hypermesh/stoq/pkg/transport"
)

// acceptLoop takes every inbound connection the endpoint hands it and
// spawns a per-connection stream loop; each stream carries exactly one
// envelope (see transport.go).
func (n *Node) acceptLoop(ctx context.Context) {
	defer n.wg.Done()
	for {
		conn, err := n.endpoint.Accept(ctx)
		if err != nil {
			select {
			case <-n.stopCh:
				return
			default:
				log.Errorf("orchestrator: accept connection", err)
				continue
			}
		}
		n.wg.Add(1)
		go n.connectionLoop(ctx, conn)
	}
}

func (n *Node) connectionLoop(ctx context.Context, conn *transport.Connection) {
	defer n.wg.Done()
	for {
		stream, err := conn.AcceptBi(ctx)
		if err != nil {
			return
		}
		n.wg.Add(1)
		go n.handleStream(ctx, stream)
	}
}

func (n *Node) handleStream(ctx context.Context, stream streamReader) {
	defer n.wg.Done()
	env, err := readEnvelope(stream)
	if err != nil {
		return
	}
	switch env.Kind {
	case envelopeConsensus:
		n.dispatchConsensus(ctx, env.Consensus)
	}
}

// streamReader is the subset of *quic.Stream handleStream needs,
// narrowed so tests can exercise dispatch without a real QUIC stream.
type streamReader interface {
	Read(p []byte) (int, error)
}

// dispatchConsensus feeds one inbound message to the engine and, if
// the engine produced a reply, sends it back to the originator as an
// independent Send.
func (n *Node) dispatchConsensus(ctx context.Context, msg *consensus.Message) {
	if msg == nil {
		return
	}
	resp, err := n.engine.HandleMessage(ctx, *msg)
	if err != nil {
		if !errors.Is(err, consensus.ErrByzantineRejected) {
			log.Errorf("orchestrator: handle consensus message", err)
		}
		return
	}
	if resp == nil {
		return
	}
	if err := n.transport.Send(ctx, msg.From, *resp); err != nil {
		log.Errorf("orchestrator: send consensus reply", err)
	}
}
