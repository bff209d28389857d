package transport

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenFrameRoundTrip(t *testing.T) {
	want := &TokenFrame{Hash: [32]byte{1, 2, 3}, Sequence: 7, Timestamp: 1700000000}
	got, err := DecodeFrame(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestShardFrameRoundTrip(t *testing.T) {
	data := []byte("fragment payload")
	want := &ShardFrame{ShardID: 9, Total: 3, Seq: 1, PacketHash: sha256.Sum256(data), Data: data}
	got, err := DecodeFrame(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSignatureFrameRoundTrip(t *testing.T) {
	want := &SignatureFrame{
		KeyID:   "pq-key-1",
		Covers:  []FrameKind{FrameKindToken, FrameKindShard},
		SigBlob: []byte{0xde, 0xad, 0xbe, 0xef},
	}
	got, err := DecodeFrame(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestHopSeedFrameRoundTrip(t *testing.T) {
	want := &HopSeedFrame{Payload: []byte("reserved")}
	got, err := DecodeFrame(want.Encode())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecodeFrameRejectsUnknownKind(t *testing.T) {
	_, err := DecodeFrame([]byte{0x00})
	require.Error(t, err)
}
