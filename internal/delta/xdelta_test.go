package delta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXdelta_RoundTripsWithSharedPrefix(t *testing.T) {
	parent := randomBytes(4096, 10)
	child := append(append([]byte(nil), parent[:2048]...), randomBytes(300, 11)...)
	child = append(child, parent[2048:]...)

	enc := XdeltaEncoder{}
	dec := XdeltaDecoder{}

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	got, err := dec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestXdelta_RoundTripsWithZstdWrapping(t *testing.T) {
	parent := randomBytes(4096, 60)
	child := append(append([]byte(nil), parent[:2048]...), randomBytes(300, 61)...)
	child = append(child, parent[2048:]...)

	enc := NewXdeltaEncoder()
	dec := NewXdeltaDecoder()

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	got, err := dec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestXdelta_ZstdDecoderRejectsUnwrappedStream(t *testing.T) {
	enc := XdeltaEncoder{}
	dec := NewXdeltaDecoder()

	parent := randomBytes(4096, 62)
	child := append(append([]byte(nil), parent[:2048]...), randomBytes(300, 63)...)
	child = append(child, parent[2048:]...)

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	_, err := dec.Decode(parent, delta)
	require.Error(t, err)
}

func TestXdelta_RejectsChildShorterThanOneBlock(t *testing.T) {
	enc := XdeltaEncoder{}
	_, ok := enc.Encode([]byte{1, 2, 3}, randomBytes(64, 12))
	require.False(t, ok)
}

func TestXdelta_IndexKeepsFirstOffsetOnCollision(t *testing.T) {
	block := randomBytes(xdeltaBlockSize, 20)
	parent := append(append([]byte(nil), block...), block...)

	index := buildXdeltaIndex(parent)
	sum := adler32(block)
	require.Equal(t, 0, index[sum])
}

func TestXdelta_DecodeRejectsOffsetPastParent(t *testing.T) {
	dec := XdeltaDecoder{}
	var delta []byte
	delta, ok := appendLen3LE(delta, 4, false)
	require.True(t, ok)
	delta, ok = appendOffset3LE(delta, 1000)
	require.True(t, ok)

	_, err := dec.Decode([]byte("short"), delta)
	require.ErrorIs(t, err, ErrInvalidOffset)
}

func TestGdelta_RoundTripsWithSharedRegions(t *testing.T) {
	parent := randomBytes(64*1024, 30)
	child := append(append([]byte(nil), parent[:30000]...), randomBytes(5000, 31)...)
	child = append(child, parent[35000:]...)

	enc := GdeltaEncoder{}
	dec := GdeltaDecoder{}

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	got, err := dec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestGdelta_RoundTripsIdenticalData(t *testing.T) {
	data := randomBytes(20000, 40)

	enc := GdeltaEncoder{}
	dec := GdeltaDecoder{}

	delta, ok := enc.Encode(data, data)
	require.True(t, ok)

	got, err := dec.Decode(data, delta)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestGdelta_RejectsEmptyChild(t *testing.T) {
	enc := GdeltaEncoder{}
	_, ok := enc.Encode(nil, randomBytes(64, 41))
	require.False(t, ok)
}

func TestGdeltaDecoder_DecodesXdeltaEncoderOutput(t *testing.T) {
	parent := randomBytes(4096, 50)
	child := append(append([]byte(nil), parent[:1000]...), randomBytes(100, 51)...)
	child = append(child, parent[1100:]...)

	xenc := XdeltaEncoder{}
	delta, ok := xenc.Encode(child, parent)
	require.True(t, ok)

	gdec := GdeltaDecoder{}
	got, err := gdec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}
