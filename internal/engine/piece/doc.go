// Package piece implements the piece chain, the mark chain and the splice
// primitive that performs every mutation of a buffer.
//
// Pieces and marks live in arenas addressed by stable IDs. The live content
// of a buffer is a circular doubly-linked list of pieces threaded through the
// piece arena, with piece 0 as the sentinel that stands for both
// "before first" and "after last". Unlinking a piece never frees its slot:
// the history tree keeps referring to removed ranges so they can be linked
// back on undo.
//
// Marks are stable position handles. Each stores the piece it sits in, the
// offset inside that piece and a cached absolute position. Marks form a
// second circular list, kept sorted by position. A mark's offset is always
// smaller than its piece's length; a mark at the very end of the buffer sits
// on the sentinel at offset 0. Three marks are permanent: Start, Insert and
// End.
//
// Replace is the single mutation primitive. It removes the content between
// two marks and/or links in a detached range built with NewRange, CopyRange,
// FillRange or TransformRange, and returns a Splice describing the change.
// Revert and Apply replay a Splice backwards and forwards; the history tree
// uses them for undo, redo and jumps.
package piece
