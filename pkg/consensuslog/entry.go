package consensuslog

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/hypermesh/stoq/pkg/types"
)

// Entry is one replicated log record. Checksum covers Term, Op and
// Payload and is verified on every read, never written blind.
type Entry struct {
	Index    types.LogIndex
	Term     types.Term
	Op       string
	Payload  []byte
	Checksum uint64
}

// seal computes and stores the entry's checksum.
func (e *Entry) seal() {
	e.Checksum = checksum(e.Term, e.Op, e.Payload)
}

// verify reports whether the stored checksum matches the entry's
// contents.
func (e *Entry) verify() bool {
	return e.Checksum == checksum(e.Term, e.Op, e.Payload)
}

func checksum(term types.Term, op string, payload []byte) uint64 {
	h := xxhash.New()
	var termBuf [8]byte
	binary.BigEndian.PutUint64(termBuf[:], uint64(term))
	h.Write(termBuf[:])
	h.Write([]byte(op))
	h.Write(payload)
	return h.Sum64()
}

// encode serializes an entry as length-prefixed fields: term, op
// length + op, payload length + payload, checksum. Field order and
// widths are normative to the wire.
func (e *Entry) encode() []byte {
	buf := make([]byte, 0, 32+len(e.Op)+len(e.Payload))
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.Term))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.Op)))
	buf = append(buf, e.Op...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.Payload)))
	buf = append(buf, e.Payload...)
	buf = binary.BigEndian.AppendUint64(buf, e.Checksum)
	return buf
}

// decodeEntry parses the wire form produced by encode, for the index
// supplied by the caller (the index itself is the storage key, not
// encoded inline).
func decodeEntry(index types.LogIndex, raw []byte) (*Entry, error) {
	if len(raw) < 8+4 {
		return nil, fmt.Errorf("consensuslog: entry %d truncated", index)
	}
	term := types.Term(binary.BigEndian.Uint64(raw))
	raw = raw[8:]

	opLen := binary.BigEndian.Uint32(raw)
	raw = raw[4:]
	if uint32(len(raw)) < opLen+4 {
		return nil, fmt.Errorf("consensuslog: entry %d truncated op", index)
	}
	op := string(raw[:opLen])
	raw = raw[opLen:]

	payloadLen := binary.BigEndian.Uint32(raw)
	raw = raw[4:]
	if uint32(len(raw)) < payloadLen+8 {
		return nil, fmt.Errorf("consensuslog: entry %d truncated payload", index)
	}
	payload := append([]byte(nil), raw[:payloadLen]...)
	raw = raw[payloadLen:]

	sum := binary.BigEndian.Uint64(raw)

	e := &Entry{Index: index, Term: term, Op: op, Payload: payload, Checksum: sum}
	if !e.verify() {
		return nil, fmt.Errorf("consensuslog: entry %d checksum mismatch: %w", index, ErrCorruption)
	}
	return e, nil
}
