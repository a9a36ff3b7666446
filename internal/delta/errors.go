package delta

import "errors"

// Sentinel errors for the delta encoder/decoder family. Callers use
// errors.Is against these to decide propagation: encoders recover locally
// (fall back to Simple), decoders return the error and abort the whole
// chunk.
var (
	// ErrInvalidLength is returned when a delta length falls outside the
	// encoder's permitted window. Encoders fall back to Simple; decoders
	// return it and stop decoding the chunk, without logging and without
	// skipping past the instruction.
	ErrInvalidLength = errors.New("delta: invalid length")
	// ErrInvalidOffset is returned when a match instruction references
	// data out of bounds of the parent. The decoder aborts the chunk.
	ErrInvalidOffset = errors.New("delta: invalid offset")
	// ErrInvalidFlag is returned for an unrecognised opcode. The decoder
	// aborts the chunk.
	ErrInvalidFlag = errors.New("delta: invalid flag")
	// ErrChunkTooSmall is returned when the input is shorter than the
	// encoder's minimum match length; the caller falls back to Simple.
	ErrChunkTooSmall = errors.New("delta: chunk too small")
	// ErrCyclicParent is returned when resolving a Delta key's parent
	// would revisit an already-seen key.
	ErrCyclicParent = errors.New("delta: cyclic parent reference")
)
