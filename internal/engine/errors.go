package engine

import (
	"errors"

	"github.com/dshills/bytestorm/internal/engine/piece"
)

// Errors returned by engine operations.
var (
	// ErrOffsetOutOfRange indicates an offset is outside the valid buffer range.
	ErrOffsetOutOfRange = piece.ErrOffsetOutOfRange

	// ErrInvalidLength indicates a length the requested interpretation
	// cannot use, such as a 3-byte unsigned integer.
	ErrInvalidLength = errors.New("invalid length")

	// ErrOverlappingRanges indicates a move destination strictly inside the
	// moved range.
	ErrOverlappingRanges = errors.New("destination inside source range")

	// ErrNoInPlacePlan indicates SaveInPlace was called while the plan
	// requires a full rewrite.
	ErrNoInPlacePlan = errors.New("buffer cannot be saved in place")

	// ErrNoPath indicates Save was called on a buffer without a file.
	ErrNoPath = errors.New("buffer has no file path")

	// ErrClosed indicates an operation on a closed buffer.
	ErrClosed = errors.New("buffer is closed")

	// ErrModifiedDuringScan indicates the buffer changed while Scan ran.
	ErrModifiedDuringScan = errors.New("buffer modified during scan")
)
