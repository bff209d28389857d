// Package types holds the identifiers and wire-level value types shared
// across every STOQ subsystem: consensus, MVCC storage, sharding, transport
// and the proxy overlay. Keeping them in one leaf package avoids import
// cycles between the components that all need to name a node, a term or a
// shard range.
package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NodeID identifies a cluster participant for the lifetime of its process.
type NodeID string

// Term is a monotonically increasing Raft term number.
type Term uint64

// LogIndex is a monotonically increasing replicated-log position.
type LogIndex uint64

// TxnID is a cluster-unique transaction identifier.
type TxnID [16]byte

// NewTxnID mints a fresh cluster-unique transaction id.
func NewTxnID() TxnID {
	return TxnID(uuid.New())
}

func (t TxnID) String() string {
	return uuid.UUID(t).String()
}

// ParseTxnID parses a TxnID's string form, as produced by String.
func ParseTxnID(s string) (TxnID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TxnID{}, fmt.Errorf("types: parse txn id: %w", err)
	}
	return TxnID(u), nil
}

// ShardID names a shard owning a contiguous key range.
type ShardID string

// AssetKind tags the kind of resource a proxy-addressable asset represents.
type AssetKind string

const (
	AssetCPU       AssetKind = "cpu"
	AssetGPU       AssetKind = "gpu"
	AssetMemory    AssetKind = "memory"
	AssetStorage   AssetKind = "storage"
	AssetNetwork   AssetKind = "network"
	AssetContainer AssetKind = "container"
	AssetVM        AssetKind = "vm"
	AssetService   AssetKind = "service"
)

// AssetID stably identifies a proxy-addressable asset.
type AssetID struct {
	Kind AssetKind
	ID   string
}

func (a AssetID) String() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.ID)
}

// ProxyAddress is the (network, node, port, access_token) tuple that the
// proxy overlay hands out in place of a raw internal endpoint.
type ProxyAddress struct {
	NetworkID   [16]byte
	NodeID      [8]byte
	Port        uint16
	AccessToken [32]byte
}

// String renders the canonical hypermesh://<network_hex>:<node_hex>/<port> form.
func (a ProxyAddress) String() string {
	return fmt.Sprintf("hypermesh://%s:%s/%d",
		hex.EncodeToString(a.NetworkID[:]),
		hex.EncodeToString(a.NodeID[:]),
		a.Port)
}

// ProxyAddressKey is the comparable (network, node, port) part of a
// ProxyAddress, returned by Key, for map lookups that must not depend on
// the access token.
type ProxyAddressKey struct {
	NetworkID [16]byte
	NodeID    [8]byte
	Port      uint16
}

func (a ProxyAddress) Key() ProxyAddressKey {
	return ProxyAddressKey{NetworkID: a.NetworkID, NodeID: a.NodeID, Port: a.Port}
}

// ParseProxyAddress parses the canonical string form produced by String.
// It does not recover the access token, which is never transmitted in the
// textual address form; callers that need the token must look it up via
// the resolver that issued the address.
func ParseProxyAddress(s string) (ProxyAddress, error) {
	const prefix = "hypermesh://"
	if !strings.HasPrefix(s, prefix) {
		return ProxyAddress{}, fmt.Errorf("proxy address: missing %q prefix", prefix)
	}
	rest := s[len(prefix):]
	hostPart, portPart, ok := strings.Cut(rest, "/")
	if !ok {
		return ProxyAddress{}, fmt.Errorf("proxy address: missing port segment")
	}
	netHex, nodeHex, ok := strings.Cut(hostPart, ":")
	if !ok {
		return ProxyAddress{}, fmt.Errorf("proxy address: missing network:node separator")
	}
	netBytes, err := hex.DecodeString(netHex)
	if err != nil || len(netBytes) != 16 {
		return ProxyAddress{}, fmt.Errorf("proxy address: network id must be 32 hex chars")
	}
	nodeBytes, err := hex.DecodeString(nodeHex)
	if err != nil || len(nodeBytes) != 8 {
		return ProxyAddress{}, fmt.Errorf("proxy address: node id must be 16 hex chars")
	}
	port, err := strconv.ParseUint(portPart, 10, 16)
	if err != nil {
		return ProxyAddress{}, fmt.Errorf("proxy address: invalid port: %w", err)
	}
	var addr ProxyAddress
	copy(addr.NetworkID[:], netBytes)
	copy(addr.NodeID[:], nodeBytes)
	addr.Port = uint16(port)
	return addr, nil
}

// ShardStatus is the lifecycle state of a shard.
type ShardStatus string

const (
	ShardInitializing  ShardStatus = "initializing"
	ShardActive        ShardStatus = "active"
	ShardSplitting     ShardStatus = "splitting"
	ShardMerging       ShardStatus = "merging"
	ShardMigrating     ShardStatus = "migrating"
	ShardUnavailable   ShardStatus = "unavailable"
	ShardDecommission  ShardStatus = "decommissioning"
)

// KeyRange is a half-open [Lo, Hi) range over the key domain. An empty Hi
// means "to the end of the key space".
type KeyRange struct {
	Lo []byte
	Hi []byte
}

// Contains reports whether key falls in [Lo, Hi).
func (r KeyRange) Contains(key []byte) bool {
	if string(key) < string(r.Lo) {
		return false
	}
	if len(r.Hi) == 0 {
		return true
	}
	return string(key) < string(r.Hi)
}

// IsolationLevel names an MVCC transaction isolation level.
type IsolationLevel string

const (
	ReadCommitted  IsolationLevel = "read_committed"
	RepeatableRead IsolationLevel = "repeatable_read"
	Serializable   IsolationLevel = "serializable"
)

// TxnState is a transaction's lifecycle state.
type TxnState string

const (
	TxnActive    TxnState = "active"
	TxnPrepared  TxnState = "prepared"
	TxnCommitted TxnState = "committed"
	TxnAborted   TxnState = "aborted"
)

// HashAlgorithm selects the hash function backing a consistent-hash ring.
type HashAlgorithm string

const (
	HashSHA256  HashAlgorithm = "sha256"
	HashBLAKE3  HashAlgorithm = "blake3"
	HashXXHash  HashAlgorithm = "xxhash"
)

// PutUint64 / GetUint64 / PutUint32 / GetUint32 are little-endian
// fixed-width integer helpers. The module's wire codecs call
// encoding/binary directly instead of these.
func PutUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func GetUint64(b []byte) uint64    { return binary.LittleEndian.Uint64(b) }
func PutUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func GetUint32(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }
