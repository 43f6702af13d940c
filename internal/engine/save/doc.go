// Package save decides how a buffer is written back to disk and performs
// the write.
//
// Build walks the live pieces and produces a Plan. A plan is in place when
// every byte can be written at its final offset in the original file
// without destroying bytes that a later part of the same write still has to
// read. The check is a single pass with an expected file offset: a piece
// backed by the original file must start at or after that offset. A piece
// that starts exactly there with no transform is already on disk and needs
// no write. Anything else is written at the expected offset.
//
// A plan that is not in place is executed as a full rewrite into a
// temporary file next to the target, which is renamed over it only after
// the data has been synced.
package save
