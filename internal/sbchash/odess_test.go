package sbchash

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOdessHasher_Deterministic(t *testing.T) {
	chunk := make([]byte, 8192)
	rand.New(rand.NewSource(7)).Read(chunk)

	h := NewDefaultOdessHasher()
	require.Equal(t, h.Hash(chunk), h.Hash(chunk))
}

func TestOdessHasher_DistinctChunksUsuallyDiffer(t *testing.T) {
	h := NewDefaultOdessHasher()
	rng := rand.New(rand.NewSource(99))

	a := make([]byte, 8192)
	b := make([]byte, 8192)
	rng.Read(a)
	rng.Read(b)

	require.NotEqual(t, h.Hash(a), h.Hash(b))
}

func TestOdessHash_NextPrevCarryAndSaturate(t *testing.T) {
	h := OdessHash{Features: [3]uint64{^uint64(0), 5, 5}}
	next := h.Next()
	require.Equal(t, OdessHash{Features: [3]uint64{0, 6, 5}}, next)

	back := next.Prev()
	require.Equal(t, h, back)

	maxHash := OdessHash{Features: [3]uint64{^uint64(0), ^uint64(0), ^uint64(0)}}
	require.Equal(t, maxHash, maxHash.Next())

	zero := OdessHash{}
	require.Equal(t, zero, zero.Prev())
}

func TestOdessHasher_EmptyChunk(t *testing.T) {
	h := NewDefaultOdessHasher()
	got := h.Hash(nil)
	require.Equal(t, OdessHash{Features: [3]uint64{^uint64(0), ^uint64(0), ^uint64(0)}}, got)
}
