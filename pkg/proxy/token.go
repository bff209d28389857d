package proxy

import (
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// deriveAccessToken computes the 32-byte access token binding a proxy
// address to its issuance time, per the address format's
// network_id ∥ node_id ∥ port ∥ issue_timestamp construction.
func deriveAccessToken(networkID [16]byte, nodeID [8]byte, port uint16, issuedAt time.Time) [32]byte {
	h := sha256.New()
	h.Write(networkID[:])
	h.Write(nodeID[:])

	var portBuf [2]byte
	binary.LittleEndian.PutUint16(portBuf[:], port)
	h.Write(portBuf[:])

	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], uint64(issuedAt.Unix()))
	h.Write(tsBuf[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
