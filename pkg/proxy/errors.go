package proxy

import "errors"

var (
	ErrNoSuitableNode       = errors.New("proxy: no registered node meets the trust threshold")
	ErrPortRangeExhausted   = errors.New("proxy: no available port in range on selected node")
	ErrAddressNotFound      = errors.New("proxy: address not found")
	ErrAssetNotMapped       = errors.New("proxy: asset has no address")
	ErrInvalidToken         = errors.New("proxy: access token verification failed")
	ErrPeerNotTrusted       = errors.New("proxy: peer certificate not valid in trust root")
	ErrNoHealthyDestination = errors.New("proxy: no healthy destination available")
)
