// Package block provides the raw byte storage that pieces point into.
//
// Three kinds of block exist:
//
//   - Memory blocks are fixed-capacity, append-only pages. The Store keeps one
//     "current" page and rolls a new one when it fills.
//   - File blocks are read-only views of an open file. Each caches the most
//     recently requested window and refills on a miss. File blocks are shared
//     by absolute path, so repeated opens of one file reuse one reader.
//   - Constant blocks are conceptually infinite; every byte equals a fixed
//     value. They are interned per value.
//
// Blocks never move once created. A piece's meaning is therefore invariant
// for the lifetime of its block.
//
// Writing to a file or constant block returns ErrUnsupportedOperation. Reads
// outside a memory or constant block are programming errors and panic: every
// range handed to a block has already been bounds-checked by the piece chain.
package block
