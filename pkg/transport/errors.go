package transport

import "errors"

// Error kinds surfaced by connect/accept. No operation in this package
// retries: Connect returns ErrDnsFailure as soon as the single
// configured resolver has no record for a name, ErrCertInvalid and
// ErrUnreachable are returned on the first failure, and ErrTimeout is
// not returned by Connect or Accept.
var (
	ErrDnsFailure  = errors.New("transport: name did not resolve")
	ErrCertInvalid = errors.New("transport: peer certificate invalid")
	ErrUnreachable = errors.New("transport: peer unreachable")
	ErrTimeout     = errors.New("transport: operation timed out")
	ErrIpv4Refused = errors.New("transport: ipv4 peer refused")
	ErrClosed      = errors.New("transport: endpoint closed")
)
