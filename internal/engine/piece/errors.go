package piece

import "errors"

// Errors returned by piece and mark operations.
var (
	// ErrUnknownMark indicates a mark ID that does not exist or was destroyed.
	ErrUnknownMark = errors.New("unknown mark")

	// ErrPermanentMark indicates an attempt to destroy Start, Insert or End.
	ErrPermanentMark = errors.New("mark is permanent")

	// ErrOffsetOutOfRange indicates a position outside [0, Len()].
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrCorrupt indicates a violated chain invariant. It always means a bug.
	ErrCorrupt = errors.New("piece table invariant violated")
)
