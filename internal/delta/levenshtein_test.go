package delta

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func flip(b byte) byte {
	if b < 255 {
		return b + 1
	}
	return 0
}

func TestLevenshtein_RoundTripsSingleByteDiff(t *testing.T) {
	parent := randomBytes(8192, 1)
	child := append([]byte(nil), parent...)
	child[15] = flip(child[15])

	enc := LevenshteinEncoder{}
	dec := LevenshteinDecoder{}

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	got, err := dec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestLevenshtein_RoundTripsTwoNeighbourByteDiff(t *testing.T) {
	parent := randomBytes(8192, 2)
	child := append([]byte(nil), parent...)
	child[15] = flip(child[15])
	child[16] = flip(child[16])

	enc := LevenshteinEncoder{}
	dec := LevenshteinDecoder{}

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	got, err := dec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestLevenshtein_RoundTripsOffsetLeft(t *testing.T) {
	parent := randomBytes(8192, 3)
	child := parent[15:]

	enc := LevenshteinEncoder{}
	dec := LevenshteinDecoder{}

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	got, err := dec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestLevenshtein_RoundTripsOffsetRight(t *testing.T) {
	parent := randomBytes(8192, 4)
	child := parent[:8000]

	enc := LevenshteinEncoder{}
	dec := LevenshteinDecoder{}

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	got, err := dec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestLevenshtein_FallsBackWhenTooDissimilar(t *testing.T) {
	parent := randomBytes(64, 5)
	child := randomBytes(64, 6)

	enc := LevenshteinEncoder{}
	_, ok := enc.Encode(child, parent)
	require.False(t, ok)
}

func TestLevenshtein_DecodeRejectsTruncatedStream(t *testing.T) {
	dec := LevenshteinDecoder{}
	_, err := dec.Decode([]byte("parent"), []byte{0x00, 0x01, 0x02})
	require.ErrorIs(t, err, ErrInvalidLength)
}
