package delta

import (
	"hash/fnv"

	"github.com/klauspost/compress/zstd"

	"github.com/prn-tf/sbc-engine/internal/gear"
)

var (
	zstdEncoderPool, _ = zstd.NewWriter(nil)
	zstdDecoderPool, _ = zstd.NewReader(nil)
)

// zstdWrap compresses a COPY/INSERT instruction stream. Xdelta's fixed
// 16-byte blocks leave more redundancy in the instruction stream itself
// (repeated offsets, runs of short INSERTs) than Zdelta's LZ77 matches do,
// so the optional wrapping lives here instead.
func zstdWrap(raw []byte) []byte {
	return zstdEncoderPool.EncodeAll(raw, make([]byte, 0, len(raw)))
}

func zstdUnwrap(wrapped []byte) ([]byte, error) {
	return zstdDecoderPool.DecodeAll(wrapped, nil)
}

// The Xdelta and Gdelta families share one wire format: a sequence of
// COPY (`len:3LE | offset:3LE`) and INSERT (`len:3LE, top bit of byte 2
// set | raw bytes`) instructions. They differ only in how they index the
// parent for matches (Xdelta uses fixed 16-byte Adler-32 blocks, Gdelta
// uses Gear-hash content-defined blocks), so they share one decoder.

const (
	// maxInstructionLen is the exclusive upper bound on an instruction
	// length: the 23 usable bits (24 minus the INSERT flag bit) of the
	// 3-byte length field. Offsets use all 24 bits of their own field.
	maxInstructionLen = 1 << 23
)

func appendLen3LE(out []byte, v int, insertFlag bool) ([]byte, bool) {
	if v < 0 || v >= maxInstructionLen {
		return out, false
	}
	b2 := byte(v >> 16)
	if insertFlag {
		b2 |= 0x80
	}
	return append(out, byte(v), byte(v>>8), b2), true
}

func appendOffset3LE(out []byte, v int) ([]byte, bool) {
	if v < 0 || v >= (1<<24) {
		return out, false
	}
	return append(out, byte(v), byte(v>>8), byte(v>>16)), true
}

func readLen3LEWithFlag(b []byte) (value int, insertFlag bool) {
	insertFlag = b[2]&0x80 != 0
	value = int(b[0]) | int(b[1])<<8 | int(b[2]&0x7F)<<16
	return value, insertFlag
}

func readOffset3LE(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

// decodeCopyInsertStream is shared by XdeltaDecoder and GdeltaDecoder.
func decodeCopyInsertStream(parent, delta []byte) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(delta) {
		if i+3 > len(delta) {
			return nil, ErrInvalidLength
		}
		length, isInsert := readLen3LEWithFlag(delta[i : i+3])
		if isInsert {
			if i+3+length > len(delta) {
				return nil, ErrInvalidLength
			}
			out = append(out, delta[i+3:i+3+length]...)
			i += 3 + length
			continue
		}
		if i+6 > len(delta) {
			return nil, ErrInvalidLength
		}
		offset := readOffset3LE(delta[i+3 : i+6])
		if offset < 0 || offset+length > len(parent) {
			return nil, ErrInvalidOffset
		}
		out = append(out, parent[offset:offset+length]...)
		i += 6
	}
	return out, nil
}

// --- Xdelta: fixed-size Adler-32 block index ---

const (
	xdeltaBlockSize = 16
	adlerMod        = 65521
)

func adler32(data []byte) uint32 {
	var a, b uint32 = 1, 0
	for _, by := range data {
		a = (a + uint32(by)) % adlerMod
		b = (b + a) % adlerMod
	}
	return (b << 16) | a
}

// buildXdeltaIndex indexes non-overlapping 16-byte blocks of parent by
// their Adler-32 checksum, keeping the FIRST offset seen for a given
// checksum on collision.
func buildXdeltaIndex(parent []byte) map[uint32]int {
	index := make(map[uint32]int)
	for i := 0; i+xdeltaBlockSize <= len(parent); i += xdeltaBlockSize {
		sum := adler32(parent[i : i+xdeltaBlockSize])
		if _, ok := index[sum]; !ok {
			index[sum] = i
		}
	}
	return index
}

// XdeltaEncoder matches child blocks against a fixed-block Adler-32 index
// of the parent, emitting COPY instructions for matches and INSERT
// instructions for the gaps between them. UseZstd additionally wraps the
// resulting instruction stream in a zstd frame.
type XdeltaEncoder struct {
	UseZstd bool
}

var _ Encoder = XdeltaEncoder{}

// NewXdeltaEncoder returns an XdeltaEncoder with zstd wrapping enabled.
func NewXdeltaEncoder() XdeltaEncoder {
	return XdeltaEncoder{UseZstd: true}
}

func (e XdeltaEncoder) Encode(child, parent []byte) ([]byte, bool) {
	if len(child) < xdeltaBlockSize {
		return nil, false
	}
	index := buildXdeltaIndex(parent)

	var out []byte
	var ok bool
	i := 0
	for i <= len(child)-xdeltaBlockSize {
		sum := adler32(child[i : i+xdeltaBlockSize])
		offset, found := index[sum]
		if !found {
			start := i
			for {
				i++
				if i > len(child)-xdeltaBlockSize {
					i = len(child)
					break
				}
				sum = adler32(child[i : i+xdeltaBlockSize])
				if _, found = index[sum]; found {
					break
				}
			}
			out, ok = appendLen3LE(out, i-start, true)
			if !ok {
				return nil, false
			}
			out = append(out, child[start:i]...)
			continue
		}

		matchLen := 0
		maxLen := len(parent) - offset
		if remain := len(child) - i; remain < maxLen {
			maxLen = remain
		}
		for matchLen < maxLen && parent[offset+matchLen] == child[i+matchLen] {
			matchLen++
		}
		out, ok = appendLen3LE(out, matchLen, false)
		if !ok {
			return nil, false
		}
		out, ok = appendOffset3LE(out, offset)
		if !ok {
			return nil, false
		}
		i += matchLen
	}
	if i < len(child) {
		out, ok = appendLen3LE(out, len(child)-i, true)
		if !ok {
			return nil, false
		}
		out = append(out, child[i:]...)
	}
	if e.UseZstd {
		out = zstdWrap(out)
	}
	return out, true
}

// XdeltaDecoder inverts both XdeltaEncoder and GdeltaEncoder streams.
// UseZstd must match the encoder's setting, unwrapping the zstd frame
// before the COPY/INSERT stream is decoded.
type XdeltaDecoder struct {
	UseZstd bool
}

var _ Decoder = XdeltaDecoder{}

// NewXdeltaDecoder returns an XdeltaDecoder matching NewXdeltaEncoder.
func NewXdeltaDecoder() XdeltaDecoder {
	return XdeltaDecoder{UseZstd: true}
}

func (d XdeltaDecoder) Decode(parent, delta []byte) ([]byte, error) {
	raw := delta
	if d.UseZstd {
		unwrapped, err := zstdUnwrap(delta)
		if err != nil {
			return nil, ErrInvalidLength
		}
		raw = unwrapped
	}
	return decodeCopyInsertStream(parent, raw)
}

// --- Gdelta: Gear content-defined block index ---

const (
	averageChunkSize = 8 * 1024
	gdeltaMask       = averageChunkSize - 1 // AVERAGE_CHUNK_SIZE is a power of two
	gdeltaThreshold  = averageChunkSize / 2
)

// gearChunk splits data into content-defined blocks: a boundary falls
// after byte i when the low bits of the running Gear fingerprint equal a
// fixed threshold.
func gearChunk(data []byte) [][]byte {
	var chunks [][]byte
	var fp uint64
	start := 0
	for i, b := range data {
		fp = (fp << 1) + gear.Table[b]
		if fp&gdeltaMask == gdeltaThreshold {
			chunks = append(chunks, data[start:i+1])
			start = i + 1
		}
	}
	if start < len(data) {
		chunks = append(chunks, data[start:])
	}
	return chunks
}

func chunkFingerprint(chunk []byte) uint64 {
	h := fnv.New64a()
	h.Write(chunk)
	return h.Sum64()
}

// gearChunkIndex maps a content-defined block's fingerprint to its first
// offset in data.
func gearChunkIndex(data []byte) map[uint64]int {
	index := make(map[uint64]int)
	offset := 0
	for _, chunk := range gearChunk(data) {
		fp := chunkFingerprint(chunk)
		if _, ok := index[fp]; !ok {
			index[fp] = offset
		}
		offset += len(chunk)
	}
	return index
}

// GdeltaEncoder matches content-defined blocks of the child against a
// content-defined block index of the parent.
type GdeltaEncoder struct{}

var _ Encoder = GdeltaEncoder{}

func (GdeltaEncoder) Encode(child, parent []byte) ([]byte, bool) {
	if len(child) == 0 {
		return nil, false
	}
	index := gearChunkIndex(parent)

	var out []byte
	var ok bool
	for _, chunk := range gearChunk(child) {
		fp := chunkFingerprint(chunk)
		if offset, found := index[fp]; found && offset+len(chunk) <= len(parent) &&
			string(parent[offset:offset+len(chunk)]) == string(chunk) {
			out, ok = appendLen3LE(out, len(chunk), false)
			if !ok {
				return nil, false
			}
			out, ok = appendOffset3LE(out, offset)
			if !ok {
				return nil, false
			}
			continue
		}
		out, ok = appendLen3LE(out, len(chunk), true)
		if !ok {
			return nil, false
		}
		out = append(out, chunk...)
	}
	return out, true
}

// GdeltaDecoder inverts GdeltaEncoder (and XdeltaEncoder) streams.
type GdeltaDecoder struct{}

var _ Decoder = GdeltaDecoder{}

func (GdeltaDecoder) Decode(parent, delta []byte) ([]byte, error) {
	return decodeCopyInsertStream(parent, delta)
}
