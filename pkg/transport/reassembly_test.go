package transport

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fragmentFrames(payload []byte, shardID uint32, n int) []*ShardFrame {
	hash := sha256.Sum256(payload)
	size := (len(payload) + n - 1) / n
	frames := make([]*ShardFrame, 0, n)
	for i := 0; i < n; i++ {
		start := i * size
		if start > len(payload) {
			start = len(payload)
		}
		end := start + size
		if end > len(payload) {
			end = len(payload)
		}
		frames = append(frames, &ShardFrame{
			ShardID:    shardID,
			Total:      uint32(n),
			Seq:        uint32(i),
			PacketHash: hash,
			Data:       payload[start:end],
		})
	}
	return frames
}

func TestReassemblerCompletesOnAllFragments(t *testing.T) {
	r := NewReassembler()
	payload := []byte("a large payload split across several fragments for transport")
	frames := fragmentFrames(payload, 1, 4)

	var got []byte
	for i, f := range frames {
		out, err := r.Add(f)
		require.NoError(t, err)
		if i < len(frames)-1 {
			require.Nil(t, out)
		} else {
			got = out
		}
	}
	require.Equal(t, payload, got)
}

func TestReassemblerOutOfOrderFragments(t *testing.T) {
	r := NewReassembler()
	payload := []byte("out of order fragment reassembly")
	frames := fragmentFrames(payload, 2, 3)

	_, err := r.Add(frames[2])
	require.NoError(t, err)
	_, err = r.Add(frames[0])
	require.NoError(t, err)
	got, err := r.Add(frames[1])
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReassemblerRejectsHashMismatch(t *testing.T) {
	r := NewReassembler()
	payload := []byte("tamper test")
	frames := fragmentFrames(payload, 3, 2)
	frames[1].Data = []byte("XX")

	_, err := r.Add(frames[0])
	require.NoError(t, err)
	_, err = r.Add(frames[1])
	require.Error(t, err)
}

func TestReassemblerExpiresIncompleteSets(t *testing.T) {
	r := NewReassembler()
	base := r.now()
	elapsed := base
	r.now = func() time.Time { return elapsed }

	payload := []byte("expiring set")
	frames := fragmentFrames(payload, 4, 2)
	_, err := r.Add(frames[0])
	require.NoError(t, err)

	elapsed = base.Add(shardSetTTL + time.Second)
	_, err = r.Add(frames[1])
	require.NoError(t, err)
	require.Len(t, r.sets, 1) // frames[1] started a fresh set after expiry
}
