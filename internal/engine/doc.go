// Package engine provides the byte buffer at the core of bytestorm.
//
// A Buffer edits arbitrarily large files without loading them. Content is a
// chain of pieces referencing immutable blocks: windows over the original
// file, append-only memory pages for inserted bytes, and constant blocks for
// fills. Every edit is a single splice of that chain and is recorded in a
// branching history tree, so undo, redo and jumps between branches restore
// content and marks exactly.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - block: memory pages, file windows and constant blocks
//   - piece: the piece chain, marks and the Replace splice
//   - history: the undo tree with grouping
//   - save: the in-place save planner and atomic rewrites
//
// # Thread Safety
//
// A Buffer serialises every public method behind one mutex. Events are
// published after the mutex is released, so synchronous subscribers may
// call back into the buffer.
//
// # Basic Usage
//
//	b, err := engine.Open("disk.img", engine.WithBus(bus))
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	// Insert at an offset, then move a range in front of it
//	b.InsertAt(16, []byte{0xde, 0xad})
//	b.MoveRange(100, 200, 0)
//
//	// Undo the move as one step
//	b.Undo()
//
//	// Flush in place when it is safe, rewrite otherwise
//	if err := b.Save(); err != nil {
//	    return err
//	}
//
// # Marks
//
// Marks are positions that follow edits. Start and End are pinned to the
// buffer bounds; Insert is the edit cursor and lands after the bytes of the
// last insert. Marks inside a removed range collapse onto its start and
// return to their old places on undo.
//
// # Saving
//
// Plan reports whether the edited content can be written back into the
// original file without reading a byte that an earlier write in the same
// pass has overwritten. SaveInPlace then writes only the pieces that moved.
// Otherwise Save streams the content into a temp file and renames it over
// the target. Either way the buffer is rebased on the saved file and the
// history starts over.
package engine
