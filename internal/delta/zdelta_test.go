package delta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZdelta_RoundTripsRawWithSharedMiddle(t *testing.T) {
	parent := randomBytes(2048, 60)
	child := append(append([]byte(nil), parent[:512]...), randomBytes(64, 61)...)
	child = append(child, parent[600:]...)

	enc := ZdeltaEncoder{UseHuffman: false}
	dec := ZdeltaDecoder{UseHuffman: false}

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	got, err := dec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestZdelta_RoundTripsWithHuffmanWrapping(t *testing.T) {
	parent := randomBytes(2048, 62)
	child := append(append([]byte(nil), parent[:1000]...), randomBytes(40, 63)...)
	child = append(child, parent[1040:]...)

	enc := NewZdeltaEncoder()
	dec := NewZdeltaDecoder()

	delta, ok := enc.Encode(child, parent)
	require.True(t, ok)

	got, err := dec.Decode(parent, delta)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestZdelta_RejectsParentShorterThanTriplet(t *testing.T) {
	enc := ZdeltaEncoder{}
	_, ok := enc.Encode(randomBytes(10, 64), []byte{1, 2})
	require.False(t, ok)
}

func TestCalculateLengthComponents(t *testing.T) {
	rem, coeff := calculateLengthComponents(3)
	require.Equal(t, byte(0), rem)
	require.Equal(t, byte(0), coeff)

	rem, coeff = calculateLengthComponents(1026)
	require.Equal(t, byte(255), rem)
	require.Equal(t, byte(3), coeff)

	rem, coeff = calculateLengthComponents(2000)
	require.Equal(t, byte(255), rem)
	require.Equal(t, byte(3), coeff)
}

func TestEncodeDecodeMatchFlag_RoundTrips(t *testing.T) {
	for coeff := byte(0); coeff <= 3; coeff++ {
		for _, tc := range []struct {
			t  referencePointerType
			ok bool
		}{{refTargetLocal, true}, {refMain, true}, {refAuxiliary, false}} {
			flag, ok := encodeMatchFlag(coeff, tc.t, tc.ok)
			require.True(t, ok)
			gotCoeff, gotType, gotSign, decOK := decodeMatchFlag(flag)
			require.True(t, decOK)
			require.Equal(t, coeff, gotCoeff)
			require.Equal(t, tc.t, gotType)
			if tc.t != refTargetLocal {
				require.Equal(t, tc.ok, gotSign)
			}
		}
	}
}

func TestDecodeMatchFlag_RejectsOutOfRange(t *testing.T) {
	_, _, _, ok := decodeMatchFlag(0)
	require.False(t, ok)
	_, _, _, ok = decodeMatchFlag(21)
	require.False(t, ok)
}

func TestBuildTripletLookupTable_IndexesDuplicates(t *testing.T) {
	table, ok := buildTripletLookupTable([]byte("abcabcabc"))
	require.True(t, ok)
	require.Equal(t, []int{0, 3, 6}, table[computeTripletHash('a', 'b', 'c')])
}

func TestZdeltaHuffman_RoundTrips(t *testing.T) {
	raw := append(randomBytes(200, 70), 0x00, 0xFF, 0x01, 0x02)
	encoded := defaultZdeltaHuffman.encode(raw)
	decoded := defaultZdeltaHuffman.decode(encoded)
	require.Equal(t, raw, decoded)
}
