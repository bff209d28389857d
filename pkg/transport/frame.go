package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// FrameKind tags a custom extension frame. The four values are
// 0x3fffffffffffff00 + 0..3, near the top of the 62-bit range a QUIC
// variable-length integer can encode.
type FrameKind uint64

const (
	FrameKindToken     FrameKind = 0x3fffffffffffff00
	FrameKindShard     FrameKind = 0x3fffffffffffff01
	FrameKindSignature FrameKind = 0x3fffffffffffff02
	FrameKindHopSeed   FrameKind = 0x3fffffffffffff03
)

func (k FrameKind) String() string {
	switch k {
	case FrameKindToken:
		return "Token"
	case FrameKindShard:
		return "Shard"
	case FrameKindSignature:
		return "Signature"
	case FrameKindHopSeed:
		return "HopSeed"
	default:
		return fmt.Sprintf("FrameKind(%#x)", uint64(k))
	}
}

// Frame is a custom protocol extension carried over a bi-stream or
// datagram, tagged by its FrameKind varint.
type Frame interface {
	Kind() FrameKind
	Encode() []byte
}

// TokenFrame carries anti-replay/ordering material: a hash of the
// covered payload, a monotonic sequence number, and the issue time.
type TokenFrame struct {
	Hash      [32]byte
	Sequence  uint64
	Timestamp uint64
}

func (f *TokenFrame) Kind() FrameKind { return FrameKindToken }

func (f *TokenFrame) Encode() []byte {
	buf := quicvarint.Append(nil, uint64(FrameKindToken))
	buf = append(buf, f.Hash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, f.Sequence)
	buf = binary.BigEndian.AppendUint64(buf, f.Timestamp)
	return buf
}

func decodeTokenFrame(r *bytes.Reader) (*TokenFrame, error) {
	f := &TokenFrame{}
	if _, err := io.ReadFull(r, f.Hash[:]); err != nil {
		return nil, fmt.Errorf("transport: token frame hash: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &f.Sequence); err != nil {
		return nil, fmt.Errorf("transport: token frame sequence: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &f.Timestamp); err != nil {
		return nil, fmt.Errorf("transport: token frame timestamp: %w", err)
	}
	return f, nil
}

// ShardFrame carries one fragment of a large payload split for
// transmission. Reassembly groups fragments by ShardID.
type ShardFrame struct {
	ShardID    uint32
	Total      uint32
	Seq        uint32
	PacketHash [32]byte
	Data       []byte
}

func (f *ShardFrame) Kind() FrameKind { return FrameKindShard }

func (f *ShardFrame) Encode() []byte {
	buf := quicvarint.Append(nil, uint64(FrameKindShard))
	buf = binary.BigEndian.AppendUint32(buf, f.ShardID)
	buf = binary.BigEndian.AppendUint32(buf, f.Total)
	buf = binary.BigEndian.AppendUint32(buf, f.Seq)
	buf = append(buf, f.PacketHash[:]...)
	buf = quicvarint.Append(buf, uint64(len(f.Data)))
	buf = append(buf, f.Data...)
	return buf
}

func decodeShardFrame(r *bytes.Reader) (*ShardFrame, error) {
	f := &ShardFrame{}
	for _, dst := range []*uint32{&f.ShardID, &f.Total, &f.Seq} {
		if err := binary.Read(r, binary.BigEndian, dst); err != nil {
			return nil, fmt.Errorf("transport: shard frame header: %w", err)
		}
	}
	if _, err := io.ReadFull(r, f.PacketHash[:]); err != nil {
		return nil, fmt.Errorf("transport: shard frame hash: %w", err)
	}
	n, err := quicvarint.Read(r)
	if err != nil {
		return nil, fmt.Errorf("transport: shard frame length: %w", err)
	}
	f.Data = make([]byte, n)
	if _, err := io.ReadFull(r, f.Data); err != nil {
		return nil, fmt.Errorf("transport: shard frame data: %w", err)
	}
	return f, nil
}

// SignatureFrame binds a post-quantum signature over a set of earlier
// frame kinds for long-term authenticity, independent of the QUIC
// handshake's own (classical) authentication.
type SignatureFrame struct {
	KeyID   string
	Covers  []FrameKind
	SigBlob []byte
}

func (f *SignatureFrame) Kind() FrameKind { return FrameKindSignature }

func (f *SignatureFrame) Encode() []byte {
	buf := quicvarint.Append(nil, uint64(FrameKindSignature))
	buf = quicvarint.Append(buf, uint64(len(f.KeyID)))
	buf = append(buf, f.KeyID...)
	buf = quicvarint.Append(buf, uint64(len(f.Covers)))
	for _, k := range f.Covers {
		buf = quicvarint.Append(buf, uint64(k))
	}
	buf = quicvarint.Append(buf, uint64(len(f.SigBlob)))
	buf = append(buf, f.SigBlob...)
	return buf
}

func decodeSignatureFrame(r *bytes.Reader) (*SignatureFrame, error) {
	f := &SignatureFrame{}
	idLen, err := quicvarint.Read(r)
	if err != nil {
		return nil, fmt.Errorf("transport: signature frame key id length: %w", err)
	}
	idBytes := make([]byte, idLen)
	if _, err := io.ReadFull(r, idBytes); err != nil {
		return nil, fmt.Errorf("transport: signature frame key id: %w", err)
	}
	f.KeyID = string(idBytes)

	n, err := quicvarint.Read(r)
	if err != nil {
		return nil, fmt.Errorf("transport: signature frame cover count: %w", err)
	}
	f.Covers = make([]FrameKind, n)
	for i := range f.Covers {
		v, err := quicvarint.Read(r)
		if err != nil {
			return nil, fmt.Errorf("transport: signature frame cover kind: %w", err)
		}
		f.Covers[i] = FrameKind(v)
	}

	blobLen, err := quicvarint.Read(r)
	if err != nil {
		return nil, fmt.Errorf("transport: signature frame blob length: %w", err)
	}
	f.SigBlob = make([]byte, blobLen)
	if _, err := io.ReadFull(r, f.SigBlob); err != nil {
		return nil, fmt.Errorf("transport: signature frame blob: %w", err)
	}
	return f, nil
}

// HopSeedFrame is a reserved extension point: an opaque payload tagged
// so future frame kinds don't collide with the ones already in use.
type HopSeedFrame struct {
	Payload []byte
}

func (f *HopSeedFrame) Kind() FrameKind { return FrameKindHopSeed }

func (f *HopSeedFrame) Encode() []byte {
	buf := quicvarint.Append(nil, uint64(FrameKindHopSeed))
	buf = quicvarint.Append(buf, uint64(len(f.Payload)))
	buf = append(buf, f.Payload...)
	return buf
}

func decodeHopSeedFrame(r *bytes.Reader) (*HopSeedFrame, error) {
	n, err := quicvarint.Read(r)
	if err != nil {
		return nil, fmt.Errorf("transport: hop/seed frame length: %w", err)
	}
	f := &HopSeedFrame{Payload: make([]byte, n)}
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return nil, fmt.Errorf("transport: hop/seed frame payload: %w", err)
	}
	return f, nil
}

// DecodeFrame reads one tagged frame from raw.
func DecodeFrame(raw []byte) (Frame, error) {
	r := bytes.NewReader(raw)
	kind, err := quicvarint.Read(r)
	if err != nil {
		return nil, fmt.Errorf("transport: frame kind: %w", err)
	}
	switch FrameKind(kind) {
	case FrameKindToken:
		return decodeTokenFrame(r)
	case FrameKindShard:
		return decodeShardFrame(r)
	case FrameKindSignature:
		return decodeSignatureFrame(r)
	case FrameKindHopSeed:
		return decodeHopSeedFrame(r)
	default:
		return nil, fmt.Errorf("transport: unknown frame kind %#x", kind)
	}
}
