package sbchash

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAronovichHasher_Deterministic(t *testing.T) {
	chunk := make([]byte, 8192)
	rand.New(rand.NewSource(1)).Read(chunk)

	h := AronovichHasher{}
	first := h.Hash(chunk)
	second := h.Hash(chunk)

	require.Equal(t, first, second)
}

func TestAronovichHasher_SingleByteFlipIsStable(t *testing.T) {
	h := AronovichHasher{}
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		chunk := make([]byte, 8192)
		rng.Read(chunk)

		base := h.Hash(chunk)

		flipped := make([]byte, len(chunk))
		copy(flipped, chunk)
		idx := rng.Intn(len(flipped))
		flipped[idx] ^= 0xFF

		other := h.Hash(flipped)

		diff := int64(base.Value) - int64(other.Value)
		if diff < 0 {
			diff = -diff
		}
		require.LessOrEqualf(t, diff, int64(32),
			"flipping byte %d changed the hash by %d (base=%d other=%d)", idx, diff, base.Value, other.Value)
	}
}

func TestAronovichHash_NextPrevSaturate(t *testing.T) {
	max := AronovichHash{Value: ^uint32(0)}
	require.Equal(t, max, max.Next())

	zero := AronovichHash{Value: 0}
	require.Equal(t, zero, zero.Prev())

	mid := AronovichHash{Value: 10}
	require.Equal(t, uint32(11), mid.Next().Value)
	require.Equal(t, uint32(9), mid.Prev().Value)
}

func TestAronovichHash_GraphKeyIsIdentity(t *testing.T) {
	h := AronovichHash{Value: 0xDEADBEEF}
	require.Equal(t, h.Value, h.GraphKey())
}

func TestAronovichHasher_EmptyChunk(t *testing.T) {
	h := AronovichHasher{}
	require.Equal(t, AronovichHash{}, h.Hash(nil))
}

func TestProcessCSpectrum_SingleDistinctByteIsZero(t *testing.T) {
	spectrum := []byteFreq{{b: 0x7A, count: 4096}}
	require.Equal(t, uint32(0), processCSpectrum(spectrum))
}
