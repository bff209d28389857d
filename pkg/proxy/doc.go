// Package proxy implements the NAT-like address overlay: it allocates
// ProxyAddress values for assets, maintains forward (address → asset)
// and reverse (asset → address) mappings, selects proxy nodes by trust
// score, and authenticates and forwards inbound connections to the
// healthy destination backing an asset.
package proxy
