package engine

import (
	"github.com/dshills/bytestorm/internal/engine/history"
)

// Undo reverts the current history item, or its whole group. It returns
// false when there is nothing to undo.
func (b *Buffer) Undo() bool {
	b.mu.Lock()
	defer b.unlock()
	if b.closed {
		return false
	}
	return b.tree.Undo()
}

// Redo re-applies the preferred child of the current item, or its whole
// group. It returns false when there is nothing to redo.
func (b *Buffer) Redo() bool {
	b.mu.Lock()
	defer b.unlock()
	if b.closed {
		return false
	}
	return b.tree.Redo()
}

// Jump moves the buffer to the state recorded by history item id, on any
// branch. It returns false for an unknown or already current item.
func (b *Buffer) Jump(id history.ItemID) bool {
	b.mu.Lock()
	defer b.unlock()
	if b.closed {
		return false
	}
	return b.tree.Jump(id)
}

// BeginGroup starts an undo group. Edits until the matching EndGroup undo
// and redo as one step. Groups nest.
func (b *Buffer) BeginGroup(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tree.BeginGroup(name)
}

// EndGroup closes the innermost undo group.
func (b *Buffer) EndGroup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tree.EndGroup()
}

// History returns a read-only view of the history tree.
func (b *Buffer) History() HistoryView {
	return HistoryView{b: b}
}

// HistoryView reads the history tree of a buffer. Each call locks the
// buffer.
type HistoryView struct {
	b *Buffer
}

// Current returns the current item id.
func (h HistoryView) Current() history.ItemID {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	return h.b.tree.Current()
}

// Root returns the root item id.
func (h HistoryView) Root() history.ItemID {
	return history.RootID
}

// Len returns the number of items including the root.
func (h HistoryView) Len() int {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	return h.b.tree.Len()
}

// Item returns a copy of an item.
func (h HistoryView) Item(id history.ItemID) (history.Item, bool) {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	return h.b.tree.Item(id)
}

// Children returns the redo branches of id, preferred first.
func (h HistoryView) Children(id history.ItemID) []history.ItemID {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	return h.b.tree.Children(id)
}

// Path returns the ids from the root down to id.
func (h HistoryView) Path(id history.ItemID) []history.ItemID {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	return h.b.tree.Path(id)
}

// CanUndo reports whether Undo would do anything.
func (h HistoryView) CanUndo() bool {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	return h.b.tree.CanUndo()
}

// CanRedo reports whether Redo would do anything.
func (h HistoryView) CanRedo() bool {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	return h.b.tree.CanRedo()
}
