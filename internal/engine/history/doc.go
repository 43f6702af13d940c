// Package history records every splice of a buffer in a tree so edits can
// be undone, redone and revisited on abandoned branches.
//
// # Items
//
// Each Item holds the piece.Splice produced by one Replace together with an
// operation tag, a group id and a timestamp. The root item holds no splice
// and stands for the state the buffer was opened in.
//
// # Navigation
//
// Exactly one item is current. Undo reverts the current item's splice and
// moves to its parent. Redo applies the first child's splice. Adding an item
// while the current item already has children starts a new branch; the new
// item becomes the first child so Redo prefers it.
//
// Jump moves to any item in the tree. It undoes up to the nearest ancestor
// of the target on the active path, then redoes down to the target and
// reorders each visited item to the front of its parent's children:
//
//	tree := history.NewTree(table)
//	id := tree.Add(splice, history.OpInsert)
//	tree.Undo()
//	tree.Jump(id)
//
// # Grouping
//
// Items added between BeginGroup and EndGroup share a group id and undo and
// redo as one unit. Groups nest; only the outermost call allocates an id.
//
//	tree.BeginGroup("move")
//	// ... copy, remove ...
//	tree.EndGroup()
package history
