package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/hypermesh/stoq/pkg/log"
	"github.com/hypermesh/stoq/pkg/security"
	"github.com/hypermesh/stoq/pkg/trustroot"
	quic "github.com/quic-go/quic-go"
)

// ALPN is the application protocol identifier; a peer that doesn't
// offer it is refused during the handshake.
const ALPN = "stoq/1.0"

// Endpoint is the QUIC-over-IPv6 endpoint: it originates connections
// via Connect and terminates them via Accept. It runs no goroutine of
// its own: the caller drives a single accept loop over Accept, and each
// accepted connection is then driven independently by its caller.
type Endpoint struct {
	trustRoot *security.TrustRoot
	resolver  *trustroot.Resolver
	tlsConfig *tls.Config
	listener  *quic.Listener

	mu     sync.RWMutex
	closed bool
}

// NewEndpoint builds an endpoint bound to bindAddr (an IPv6 literal)
// that issues/verifies certificates against root and resolves names
// through resolver.
func NewEndpoint(root *security.TrustRoot, resolver *trustroot.Resolver, nodeID string, bindAddr net.IP) (*Endpoint, error) {
	cert, err := root.IssueNodeCertificate(nodeID, nil, []net.IP{bindAddr})
	if err != nil {
		return nil, fmt.Errorf("transport: issue endpoint certificate: %w", err)
	}

	e := &Endpoint{trustRoot: root, resolver: resolver}
	e.tlsConfig = &tls.Config{
		Certificates:       []tls.Certificate{*cert},
		NextProtos:         []string{ALPN},
		InsecureSkipVerify: true, // manual verification below; see verifyPeer
		VerifyPeerCertificate: e.verifyPeer,
		ClientAuth:         tls.RequireAnyClientCert,
	}
	return e, nil
}

// verifyPeer runs in place of Go's default chain verification so a
// failure maps to ErrCertInvalid instead of a generic TLS alert, and so
// the verified leaf is reachable for fingerprinting afterward.
func (e *Endpoint) verifyPeer(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	leaf, err := parseLeafCert(rawCerts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCertInvalid, err)
	}
	if err := e.trustRoot.VerifyCertificate(leaf); err != nil {
		return fmt.Errorf("%w: %v", ErrCertInvalid, err)
	}
	return nil
}

// Listen opens the QUIC listener bound to addr (IPv6 literal) and
// port; Accept takes connections from it.
func (e *Endpoint) Listen(addr net.IP, port int) error {
	if addr.To4() != nil {
		return fmt.Errorf("transport: bind address must be IPv6")
	}
	udpAddr := net.JoinHostPort(addr.String(), strconv.Itoa(port))

	ln, err := quic.ListenAddr(udpAddr, e.tlsConfig, nil)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", udpAddr, err)
	}
	e.listener = ln

	log.Logger.Info().
		Str("component", "transport").
		Str("address", udpAddr).
		Msg("listening for QUIC connections")
	return nil
}

// Accept blocks until the next handshake completes and the peer's
// certificate verifies; it rejects IPv4 peers outright.
func (e *Endpoint) Accept(ctx context.Context) (*Connection, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if e.listener == nil {
		return nil, fmt.Errorf("transport: endpoint is not listening")
	}

	qc, err := e.listener.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	remoteUDP, ok := qc.RemoteAddr().(*net.UDPAddr)
	if ok && remoteUDP.IP.To4() != nil {
		qc.CloseWithError(0, "ipv4 refused")
		return nil, ErrIpv4Refused
	}

	fp, err := fingerprintFromState(qc.ConnectionState().TLS)
	if err != nil {
		qc.CloseWithError(0, "certificate invalid")
		return nil, fmt.Errorf("%w: %v", ErrCertInvalid, err)
	}

	return &Connection{quic: qc, Fingerprint: fp}, nil
}

// Connect resolves nameOrIPv6 (unless it is already a literal IPv6
// address), dials it on port, and returns a verified connection.
// Resolution failures surface as ErrDnsFailure; handshake/verification
// failures as ErrCertInvalid; unreachable peers as ErrUnreachable.
func (e *Endpoint) Connect(ctx context.Context, nameOrIPv6 string, port int) (*Connection, error) {
	target := net.ParseIP(nameOrIPv6)
	if target == nil {
		ips, err := e.resolver.Resolve(nameOrIPv6)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDnsFailure, err)
		}
		target = ips[0]
	}
	if target.To4() != nil {
		return nil, fmt.Errorf("transport: resolved address %s is not IPv6", target)
	}

	addr := net.JoinHostPort(target.String(), strconv.Itoa(port))
	qc, err := quic.DialAddr(ctx, addr, e.tlsConfig, nil)
	if err != nil {
		if errors.Is(err, ErrCertInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrCertInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	fp, err := fingerprintFromState(qc.ConnectionState().TLS)
	if err != nil {
		qc.CloseWithError(0, "certificate invalid")
		return nil, fmt.Errorf("%w: %v", ErrCertInvalid, err)
	}

	return &Connection{quic: qc, Fingerprint: fp}, nil
}

// Close marks the endpoint closed and closes its listener, if any.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.listener != nil {
		return e.listener.Close()
	}
	return nil
}
