// Package trustroot implements the trust root's name resolution service:
// a record of node id -> IPv6 addresses that the transport's connect path
// consults before a handshake. It never stores or returns IPv4 addresses;
// an unknown name resolves to ErrDnsFailure (the DnsFailure error kind);
// no secondary root is consulted.
//
// Resolver is the in-process API (used directly once a component already
// holds a store); Server wraps it with a conventional DNS listener so a
// node with no existing connection can still bootstrap against a
// configured root address.
package trustroot
