package delta

// referencePointerType names which of Zdelta's three rolling pointers a
// match was resolved against.
type referencePointerType int

const (
	refTargetLocal referencePointerType = iota
	refMain
	refAuxiliary
)

const (
	zdeltaMinMatchLength     = 3
	zdeltaMaxMatchLength     = 1026
	zdeltaLengthBlockSize    = 256
	zdeltaMaxLengthCoeff     = 3
	zdeltaSmallOffsetThresh  = 256
	zdeltaLargeOffsetPenalty = 4096
	zdeltaLiteralFlag        = 0x00
	zdeltaMatchInstrSize     = 4
)

// matchPointers tracks the three rolling reference positions Zdelta scores
// candidate matches against.
type matchPointers struct {
	targetPtr, mainRefPtr, auxRefPtr int
}

func (p matchPointers) get(t referencePointerType) int {
	switch t {
	case refMain:
		return p.mainRefPtr
	case refAuxiliary:
		return p.auxRefPtr
	default:
		return p.targetPtr
	}
}

func (p matchPointers) calculateOffset(parentPosition int) (int16, referencePointerType) {
	if parentPosition < p.targetPtr {
		return int16(parentPosition - p.targetPtr), refTargetLocal
	}
	offsetMain := int16(parentPosition - p.mainRefPtr)
	offsetAux := int16(parentPosition - p.auxRefPtr)
	if absInt16(offsetMain) <= absInt16(offsetAux) {
		return offsetMain, refMain
	}
	return offsetAux, refAuxiliary
}

func (p *matchPointers) updateAfterMatch(matchEndPosition int, offset int16, t referencePointerType) {
	switch t {
	case refTargetLocal:
		p.targetPtr = matchEndPosition
	case refMain:
		if absInt16(offset) < zdeltaSmallOffsetThresh {
			p.mainRefPtr = matchEndPosition
		} else {
			p.auxRefPtr = matchEndPosition
		}
	case refAuxiliary:
		if absInt16(offset) < zdeltaSmallOffsetThresh {
			p.auxRefPtr = matchEndPosition
		} else {
			p.mainRefPtr = matchEndPosition
		}
	}
}

func absInt16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

func computeTripletHash(a, b, c byte) uint32 {
	return uint32(a)<<16 | uint32(b)<<8 | uint32(c)
}

// buildTripletLookupTable maps every 3-byte sequence in chunk to the list
// of positions it occurs at, in ascending order.
func buildTripletLookupTable(chunk []byte) (map[uint32][]int, bool) {
	if len(chunk) < zdeltaMinMatchLength {
		return nil, false
	}
	table := make(map[uint32][]int)
	for i := 0; i+3 <= len(chunk); i++ {
		hash := computeTripletHash(chunk[i], chunk[i+1], chunk[i+2])
		table[hash] = append(table[hash], i)
	}
	return table, true
}

// findMaxMatchLength extends a 3-byte seed match as far as both chunks
// agree, capped at zdeltaMaxMatchLength.
func findMaxMatchLength(target, parent []byte, targetPos, parentPos int) (int, bool) {
	if targetPos+zdeltaMinMatchLength > len(target) || parentPos+zdeltaMinMatchLength > len(parent) {
		return 0, false
	}
	for k := 0; k < zdeltaMinMatchLength; k++ {
		if target[targetPos+k] != parent[parentPos+k] {
			return 0, false
		}
	}
	maxLen := len(parent) - parentPos
	if remain := len(target) - targetPos; remain < maxLen {
		maxLen = remain
	}
	if maxLen > zdeltaMaxMatchLength {
		maxLen = zdeltaMaxMatchLength
	}
	length := zdeltaMinMatchLength
	for length < maxLen && target[targetPos+length] == parent[parentPos+length] {
		length++
	}
	return length, true
}

// selectBestMatch scores every candidate parent position for the current
// target position, preferring longer matches and then smaller offsets,
// with a length penalty for offsets beyond zdeltaLargeOffsetPenalty.
func selectBestMatch(target, parent []byte, currentPos int, parentPositions []int, pointers matchPointers) (length int, offset int16, t referencePointerType, ok bool) {
	bestScore := -1
	for _, parentPos := range parentPositions {
		matchLen, found := findMaxMatchLength(target, parent, currentPos, parentPos)
		if !found {
			continue
		}
		off, ptrType := pointers.calculateOffset(parentPos)

		adjusted := matchLen
		if int(absInt16(off)) > zdeltaLargeOffsetPenalty {
			adjusted--
		}

		score := (adjusted << 16) | (int(^absInt16(off)) & 0xFFFF)
		if score > bestScore {
			bestScore = score
			length, offset, t, ok = matchLen, off, ptrType, true
		}
	}
	return length, offset, t, ok
}

// calculateLengthComponents splits a match length into a 0-255 remainder
// and a 0-3 coefficient counting zdeltaLengthBlockSize-sized blocks.
func calculateLengthComponents(matchLength int) (remainder byte, coefficient byte) {
	effective := matchLength - zdeltaMinMatchLength
	if effective < 0 {
		effective = 0
	}
	coeff := effective / zdeltaLengthBlockSize
	rem := effective % zdeltaLengthBlockSize
	if coeff > zdeltaMaxLengthCoeff {
		return 255, zdeltaMaxLengthCoeff
	}
	return byte(rem), byte(coeff)
}

// encodeMatchFlag packs (lengthCoefficient, pointerType, sign) into one of
// the 20 flag values 1-20.
func encodeMatchFlag(lengthCoefficient byte, t referencePointerType, isPositive bool) (byte, bool) {
	if lengthCoefficient > zdeltaMaxLengthCoeff {
		return 0, false
	}
	base := lengthCoefficient * 5
	switch t {
	case refTargetLocal:
		return base + 1, true
	case refMain:
		if isPositive {
			return base + 2, true
		}
		return base + 3, true
	case refAuxiliary:
		if isPositive {
			return base + 4, true
		}
		return base + 5, true
	}
	return 0, false
}

func decodeMatchFlag(flag byte) (coefficient byte, t referencePointerType, isPositive bool, ok bool) {
	if flag < 1 || flag > 20 {
		return 0, 0, false, false
	}
	zeroBased := flag - 1
	coefficient = zeroBased / 5
	switch zeroBased % 5 {
	case 0:
		return coefficient, refTargetLocal, false, true
	case 1:
		return coefficient, refMain, true, true
	case 2:
		return coefficient, refMain, false, true
	case 3:
		return coefficient, refAuxiliary, true, true
	default:
		return coefficient, refAuxiliary, false, true
	}
}

// ZdeltaEncoder performs LZ77-style delta encoding against a parent using
// three rolling reference pointers (TargetLocal/Main/Auxiliary), optionally
// wrapping the raw instruction stream in a static Huffman code.
type ZdeltaEncoder struct {
	UseHuffman bool
}

var _ Encoder = ZdeltaEncoder{}

// NewZdeltaEncoder mirrors the Rust `ZdeltaEncoder::default()`, which
// enables Huffman wrapping.
func NewZdeltaEncoder() ZdeltaEncoder {
	return ZdeltaEncoder{UseHuffman: true}
}

func (e ZdeltaEncoder) Encode(child, parent []byte) ([]byte, bool) {
	table, ok := buildTripletLookupTable(parent)
	if !ok {
		return nil, false
	}

	var raw []byte
	var pointers matchPointers

	i := 0
	for i+zdeltaMinMatchLength <= len(child) {
		hash := computeTripletHash(child[i], child[i+1], child[i+2])
		positions, found := table[hash]
		if found {
			length, offset, ptrType, matched := selectBestMatch(child, parent, i, positions, pointers)
			if matched {
				remainder, coefficient := calculateLengthComponents(length)
				flag, flagOK := encodeMatchFlag(coefficient, ptrType, offset >= 0)
				if flagOK {
					offsetAbs := uint16(absInt16(offset))
					raw = append(raw, flag, remainder, byte(offsetAbs>>8), byte(offsetAbs))
					parentPos := pointers.get(ptrType) + int(offset)
					pointers.updateAfterMatch(parentPos+length, offset, ptrType)
					i += length
					continue
				}
			}
		}
		raw = append(raw, zdeltaLiteralFlag, child[i])
		i++
	}
	for i < len(child) {
		raw = append(raw, zdeltaLiteralFlag, child[i])
		i++
	}

	if e.UseHuffman {
		return defaultZdeltaHuffman.encode(raw), true
	}
	return raw, true
}

// ZdeltaDecoder inverts ZdeltaEncoder's instruction stream, undoing the
// optional Huffman wrapping first.
type ZdeltaDecoder struct {
	UseHuffman bool
}

var _ Decoder = ZdeltaDecoder{}

func NewZdeltaDecoder() ZdeltaDecoder {
	return ZdeltaDecoder{UseHuffman: true}
}

func (d ZdeltaDecoder) Decode(parent, delta []byte) ([]byte, error) {
	raw := delta
	if d.UseHuffman {
		raw = defaultZdeltaHuffman.decode(delta)
	}

	var output []byte
	var pointers matchPointers

	i := 0
	for i < len(raw) {
		if raw[i] == zdeltaLiteralFlag {
			if i+1 >= len(raw) {
				break
			}
			output = append(output, raw[i+1])
			i += 2
			continue
		}

		if i+zdeltaMatchInstrSize > len(raw) {
			if d.UseHuffman {
				// The Huffman stream's zero-bit padding in its last byte can
				// decode to one extra symbol; a partial trailing instruction
				// is that padding, not data.
				break
			}
			return nil, ErrInvalidLength
		}
		flag := raw[i]
		lengthRemainder := raw[i+1]
		offsetHigh := raw[i+2]
		offsetLow := raw[i+3]
		i += zdeltaMatchInstrSize

		coefficient, ptrType, isPositive, ok := decodeMatchFlag(flag)
		if !ok {
			return nil, ErrInvalidFlag
		}

		matchLength := zdeltaMinMatchLength + int(lengthRemainder) + int(coefficient)*zdeltaLengthBlockSize
		if matchLength > zdeltaMaxMatchLength {
			return nil, ErrInvalidLength
		}

		offset := int16(offsetHigh)<<8 | int16(offsetLow)
		if !isPositive {
			offset = -offset
		}

		sourcePos, err := resolveMatchSource(ptrType, offset, output, parent, pointers)
		if err != nil {
			return nil, err
		}
		endPos := sourcePos + matchLength

		switch ptrType {
		case refTargetLocal:
			if endPos > len(output) {
				return nil, ErrInvalidLength
			}
			output = append(output, output[sourcePos:endPos]...)
		default:
			if endPos > len(parent) {
				return nil, ErrInvalidLength
			}
			output = append(output, parent[sourcePos:endPos]...)
		}

		pointers.updateAfterMatch(sourcePos+matchLength, offset, ptrType)
	}

	return output, nil
}

func resolveMatchSource(t referencePointerType, offset int16, output, parent []byte, pointers matchPointers) (int, error) {
	if t == refTargetLocal {
		if offset > 0 || int(absInt16(offset)) > len(output) {
			return 0, ErrInvalidOffset
		}
		return len(output) - int(absInt16(offset)), nil
	}
	position := pointers.get(t) + int(offset)
	if position < 0 || position > len(parent) {
		return 0, ErrInvalidOffset
	}
	return position, nil
}
