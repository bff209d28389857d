package transport

import (
	"context"
	"fmt"

	quic "github.com/quic-go/quic-go"
)

// Connection wraps a verified QUIC connection. It only ever exists
// post-handshake-and-verification: Fingerprint is always populated by
// the time a caller observes a Connection.
type Connection struct {
	quic       *quic.Conn
	Fingerprint [32]byte
}

// OpenBi opens a new bidirectional stream for custom framing.
func (c *Connection) OpenBi(ctx context.Context) (*quic.Stream, error) {
	s, err := c.quic.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: open stream: %w", err)
	}
	return s, nil
}

// AcceptBi waits for the peer to open a bidirectional stream.
func (c *Connection) AcceptBi(ctx context.Context) (*quic.Stream, error) {
	s, err := c.quic.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: accept stream: %w", err)
	}
	return s, nil
}

// SendDatagram sends an unreliable, unordered datagram — used for
// custom frames that tolerate loss (e.g. Hop/Seed probes).
func (c *Connection) SendDatagram(b []byte) error {
	if err := c.quic.SendDatagram(b); err != nil {
		return fmt.Errorf("transport: send datagram: %w", err)
	}
	return nil
}

// RecvDatagram blocks until a datagram arrives.
func (c *Connection) RecvDatagram(ctx context.Context) ([]byte, error) {
	b, err := c.quic.ReceiveDatagram(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: receive datagram: %w", err)
	}
	return b, nil
}

// Close closes the connection. Idempotent: closing twice is a no-op
// from the caller's perspective.
func (c *Connection) Close() error {
	return c.quic.CloseWithError(0, "closed")
}

// RemoteAddr returns the peer's network address.
func (c *Connection) RemoteAddr() string {
	return c.quic.RemoteAddr().String()
}
