package script

import "errors"

// Errors returned by script runs.
var (
	// ErrTimeout indicates the script ran past its deadline.
	ErrTimeout = errors.New("script timeout")

	// ErrCanceled indicates the run context was canceled.
	ErrCanceled = errors.New("script canceled")
)
