package trustroot

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hypermesh/stoq/pkg/log"
	"github.com/hypermesh/stoq/pkg/storage"
)

// ErrDnsFailure is returned when a name has no registered IPv6 addresses.
// It mirrors the transport layer's DnsFailure error kind: the caller is
// expected to retry against a secondary root once before surfacing it.
var ErrDnsFailure = errors.New("trustroot: name does not resolve")

// ErrNotIPv6 is returned by Register when an address is not a literal
// IPv6 address; the record service never stores IPv4.
var ErrNotIPv6 = errors.New("trustroot: address is not IPv6")

// Resolver is the trust root's name->address record service. It is the
// thing the transport's connect() bootstraps against before a handshake:
// a name resolves to the IPv6 addresses most recently registered for it,
// never to IPv4.
type Resolver struct {
	bucket storage.Bucket
	domain string
}

// NewResolver opens (creating if absent) the record bucket in store and
// returns a Resolver scoped to domain (the suffix stripped from queries,
// e.g. "stoq").
func NewResolver(store storage.Store, domain string) (*Resolver, error) {
	b, err := store.Bucket(recordBucket)
	if err != nil {
		return nil, fmt.Errorf("trustroot: open record bucket: %w", err)
	}
	if domain == "" {
		domain = "stoq"
	}
	return &Resolver{bucket: b, domain: domain}, nil
}

// Register associates nodeID with a set of IPv6 addresses, replacing any
// previous registration. Called on node join and on address rotation.
func (r *Resolver) Register(nodeID string, addrs []net.IP) error {
	if len(addrs) == 0 {
		return fmt.Errorf("trustroot: register %s: no addresses", nodeID)
	}
	literal := make([]string, 0, len(addrs))
	for _, ip := range addrs {
		if ip.To4() != nil {
			return fmt.Errorf("%w: %s", ErrNotIPv6, ip)
		}
		literal = append(literal, ip.String())
	}
	rec := &record{NodeID: nodeID, Addresses: literal, UpdatedAt: time.Now()}
	if err := saveRecord(r.bucket, r.stripDomain(nodeID), rec); err != nil {
		return err
	}
	log.Logger.Debug().
		Str("component", "trustroot").
		Str("node", nodeID).
		Int("addresses", len(literal)).
		Msg("registered node addresses")
	return nil
}

// Unregister removes a node's record, e.g. on graceful departure.
func (r *Resolver) Unregister(nodeID string) error {
	return r.bucket.Delete([]byte(r.stripDomain(nodeID)))
}

// Resolve looks up the IPv6 addresses registered for name. An empty
// result is ErrDnsFailure, never a bare empty slice: callers must be
// able to distinguish "not found" from "found, zero addresses" (which
// cannot otherwise occur since Register rejects empty address sets).
func (r *Resolver) Resolve(name string) ([]net.IP, error) {
	key := r.stripDomain(strings.TrimSuffix(name, "."))

	rec, err := loadRecord(r.bucket, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrDnsFailure, name)
	}

	ips, err := parseIPv6Addresses(rec.Addresses)
	if err != nil {
		return nil, fmt.Errorf("trustroot: corrupt record for %s: %w", name, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDnsFailure, name)
	}

	log.Logger.Debug().
		Str("component", "trustroot").
		Str("query", name).
		Int("addresses", len(ips)).
		Msg("resolved name")
	return ips, nil
}

// stripDomain removes the configured search domain suffix, if present.
func (r *Resolver) stripDomain(name string) string {
	suffix := "." + r.domain
	return strings.TrimSuffix(name, suffix)
}
