// Package delta implements the three delta-encoder families used to
// rewrite a near-duplicate chunk as a byte patch against a chosen parent:
// Levenshtein (edit-script opcodes), Xdelta/Gdelta (rolling-hash block
// copy/insert instructions), and Zdelta (LZ77 with multi-pointer match
// selection).
package delta

// LargeChunkThreshold is the absolute byte-length difference between a
// chunk and its candidate parent above which delta encoding is skipped in
// favour of storing the chunk as Simple.
const LargeChunkThreshold = 4000

// Encoder produces a delta byte stream that Decoder can invert given the
// same parent bytes. Encode returns (nil, false) when the input falls
// outside the encoder's applicable range — the caller must then store the
// chunk as Simple instead.
type Encoder interface {
	Encode(child, parent []byte) (delta []byte, ok bool)
}

// Decoder reconstructs child bytes from parent bytes and a delta stream
// produced by the matching Encoder.
type Decoder interface {
	Decode(parent, delta []byte) ([]byte, error)
}

// Kind names one of the configurable encoder/decoder pairs.
type Kind string

const (
	KindLevenshtein Kind = "levenshtein"
	KindXdelta      Kind = "xdelta"
	KindGdelta      Kind = "gdelta"
	KindZdelta      Kind = "zdelta"
)
