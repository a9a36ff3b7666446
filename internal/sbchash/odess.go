package sbchash

import "github.com/prn-tf/sbc-engine/internal/gear"

// OdessHash is a three-word feature vector: each word is the minimum value
// seen, across content-defined sample points, of a distinct linear
// transform of the rolling Gear fingerprint. Unlike AronovichHash it has no
// single-scalar ordering, so it does not implement GraphKeyable — see the
// Hash/GraphKeyable doc comments in hash.go.
type OdessHash struct {
	Features [3]uint64
}

var _ = assertHash[OdessHash]

// Next returns the adjacent signature, treating Features as a 3-word
// little-endian counter that carries from word 0 upward and saturates at
// all-MaxUint64.
func (h OdessHash) Next() OdessHash {
	out := h
	switch {
	case out.Features[0] < ^uint64(0):
		out.Features[0]++
	case out.Features[1] < ^uint64(0):
		out.Features[0] = 0
		out.Features[1]++
	case out.Features[2] < ^uint64(0):
		out.Features[0] = 0
		out.Features[1] = 0
		out.Features[2]++
	default:
		out.Features = [3]uint64{^uint64(0), ^uint64(0), ^uint64(0)}
	}
	return out
}

// Prev returns the adjacent signature, borrowing from word 0 downward and
// saturating at all-zero.
func (h OdessHash) Prev() OdessHash {
	out := h
	switch {
	case out.Features[0] > 0:
		out.Features[0]--
	case out.Features[1] > 0:
		out.Features[0] = ^uint64(0)
		out.Features[1]--
	case out.Features[2] > 0:
		out.Features[0] = ^uint64(0)
		out.Features[1] = ^uint64(0)
		out.Features[2]--
	default:
		out.Features = [3]uint64{}
	}
	return out
}

// defaultOdessSamplingExponent is the default sampling-rate exponent (the
// source's `OdessHasher::default` uses a sampling rate of 2^7 = 128).
const defaultOdessSamplingExponent = 7

var defaultOdessLinearCoeffs = [3]uint64{
	0x3f9c9a5d4e8a3b2a,
	0x7d4f1b2c3a6e5d8c,
	0x1a2b3c4d5e6f7a8b,
}

// OdessHasher computes OdessHash signatures via content-defined sampling of
// a Gear rolling hash: at every fingerprint position whose low
// log2(samplingRate) bits are zero, each of three linear transforms of the
// fingerprint is tracked as a running minimum.
type OdessHasher struct {
	samplingRate uint64
	linearCoeffs [3]uint64
}

var _ Hasher[OdessHash] = OdessHasher{}

// NewOdessHasher builds a hasher that samples roughly every 2^samplingExp
// Gear fingerprint updates.
func NewOdessHasher(samplingExp uint) OdessHasher {
	return OdessHasher{
		samplingRate: 1 << samplingExp,
		linearCoeffs: defaultOdessLinearCoeffs,
	}
}

// NewDefaultOdessHasher matches the source's Default impl (sampling
// exponent 7).
func NewDefaultOdessHasher() OdessHasher {
	return NewOdessHasher(defaultOdessSamplingExponent)
}

// Hash computes the Odess signature for chunk.
func (o OdessHasher) Hash(chunk []byte) OdessHash {
	features := [3]uint64{^uint64(0), ^uint64(0), ^uint64(0)}
	mask := o.samplingRate - 1
	var fp uint64

	for _, b := range chunk {
		fp = (fp << 1) + gear.Table[b]

		if fp&mask == 0 {
			for i := range features {
				transform := (o.linearCoeffs[i]*fp + uint64(b)) % (1 << 32)
				if features[i] >= transform {
					features[i] = transform
				}
			}
		}
	}

	return OdessHash{Features: features}
}
