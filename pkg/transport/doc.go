// Package transport is the QUIC-over-IPv6 endpoint: connect, accept,
// send/recv, bidirectional streams and datagrams, plus the custom frame
// extensions (Token, Shard, Signature, Hop/Seed) that ride on top of them.
//
// No application byte reaches a caller until the QUIC handshake
// completes, the peer's certificate chain verifies against the trust
// root, and the resulting fingerprint is recorded on the connection —
// Endpoint.Connect and Endpoint.Accept both enforce this before
// returning. IPv4 peers are refused outright; this transport speaks
// IPv6 only.
package transport
