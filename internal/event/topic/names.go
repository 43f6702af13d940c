package topic

// Topics published by bytestorm.
const (
	// BufferChanged fires once per mutating call and once per undo, redo
	// or jump step.
	BufferChanged Topic = "buffer.changed"

	// BufferSaved fires after a successful save.
	BufferSaved Topic = "buffer.saved"

	HistoryAdded  Topic = "history.added"
	HistoryUndone Topic = "history.undone"
	HistoryRedone Topic = "history.redone"
	HistoryJumped Topic = "history.jumped"

	// FileChanged fires when a backing file is modified outside the buffer.
	FileChanged Topic = "file.changed"
)
