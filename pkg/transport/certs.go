package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/hypermesh/stoq/pkg/security"
)

// parseLeafCert parses the peer's leaf certificate (the first entry in
// the raw chain TLS hands to VerifyPeerCertificate).
func parseLeafCert(rawCerts [][]byte) (*x509.Certificate, error) {
	if len(rawCerts) == 0 {
		return nil, fmt.Errorf("transport: peer presented no certificate")
	}
	leaf, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return nil, fmt.Errorf("transport: parse peer certificate: %w", err)
	}
	return leaf, nil
}

// fingerprintFromState extracts the stable fingerprint of the peer's
// leaf certificate from a completed TLS connection state. It assumes
// VerifyPeerCertificate has already run and succeeded.
func fingerprintFromState(state tls.ConnectionState) ([32]byte, error) {
	if len(state.PeerCertificates) == 0 {
		return [32]byte{}, fmt.Errorf("transport: no peer certificate on connection state")
	}
	return security.Fingerprint(state.PeerCertificates[0]), nil
}
