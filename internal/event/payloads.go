package event

// ChangedRange is the payload of topic.BufferChanged: the buffer byte range
// [Start, End) whose content may differ from before.
type ChangedRange struct {
	Start int64
	End   int64
}

// HistoryChanged is the payload of the history topics: the current history
// item before and after the change.
type HistoryChanged struct {
	Old int
	New int
}

// Saved is the payload of topic.BufferSaved.
type Saved struct {
	Path    string
	InPlace bool
	Written int64
}

// FileChanged is the payload of topic.FileChanged.
type FileChanged struct {
	Path string
	// Removed is true when the file was deleted or renamed away.
	Removed bool
}
