package save

import "errors"

// Errors returned by plan execution.
var (
	// ErrNotInPlace indicates WriteInPlace was given a full rewrite plan.
	ErrNotInPlace = errors.New("plan requires a full rewrite")

	// ErrFileChanged indicates the original file was modified outside the
	// buffer after it was opened.
	ErrFileChanged = errors.New("file changed on disk")
)
