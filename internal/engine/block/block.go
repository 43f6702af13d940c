package block

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// Errors returned by block operations.
var (
	// ErrUnsupportedOperation indicates a write to a read-only block.
	ErrUnsupportedOperation = errors.New("unsupported operation on read-only block")

	// ErrBlockFull indicates a memory block has no room left.
	ErrBlockFull = errors.New("memory block is full")

	// ErrClosed indicates the block's underlying file has been closed.
	ErrClosed = errors.New("block is closed")
)

// ID uniquely identifies a block within the process.
type ID uint64

var idCounter uint64

func nextID() ID {
	return ID(atomic.AddUint64(&idCounter, 1))
}

// Kind is the storage variant of a block.
type Kind uint8

const (
	KindMemory Kind = iota
	KindFile
	KindConstant
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindFile:
		return "file"
	case KindConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Unbounded is the length reported by constant blocks.
const Unbounded int64 = math.MaxInt64

// Block is a source of bytes that pieces reference.
type Block interface {
	// ID returns the block's identity.
	ID() ID

	// Kind returns the storage variant.
	Kind() Kind

	// Len returns the number of addressable bytes.
	Len() int64

	// ReadAt copies len(p) bytes starting at off into p.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt overwrites len(p) bytes starting at off.
	// Read-only blocks return ErrUnsupportedOperation.
	WriteAt(p []byte, off int64) (int, error)
}

// Span is a byte range inside one block.
type Span struct {
	Block Block
	Start int64
	End   int64
}

// Len returns the span length.
func (s Span) Len() int64 {
	return s.End - s.Start
}

// checkRange panics when [off, off+n) is not inside a block of length size.
func checkRange(kind Kind, id ID, size, off int64, n int) {
	if off < 0 || n < 0 || off > size-int64(n) {
		panic(fmt.Sprintf("block: %s block %d read [%d,%d) out of range (len %d)",
			kind, id, off, off+int64(n), size))
	}
}
