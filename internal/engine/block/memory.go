package block

import "sync"

// DefaultPageSize is the capacity of a memory block.
const DefaultPageSize = 64 * 1024

// MemoryBlock is a fixed-capacity, append-only page of bytes.
type MemoryBlock struct {
	mu   sync.RWMutex
	id   ID
	data []byte
}

// NewMemoryBlock creates an empty memory block with the given capacity.
func NewMemoryBlock(capacity int) *MemoryBlock {
	if capacity <= 0 {
		capacity = DefaultPageSize
	}
	return &MemoryBlock{
		id:   nextID(),
		data: make([]byte, 0, capacity),
	}
}

// ID returns the block identity.
func (b *MemoryBlock) ID() ID { return b.id }

// Kind returns KindMemory.
func (b *MemoryBlock) Kind() Kind { return KindMemory }

// Len returns the number of bytes appended so far.
func (b *MemoryBlock) Len() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data))
}

// Cap returns the block capacity.
func (b *MemoryBlock) Cap() int {
	return cap(b.data)
}

// Free returns the number of bytes that can still be appended.
func (b *MemoryBlock) Free() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cap(b.data) - len(b.data)
}

// Append copies as much of p as fits and returns the offset it was written
// at and the number of bytes taken.
func (b *MemoryBlock) Append(p []byte) (int64, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	off := int64(len(b.data))
	n := cap(b.data) - len(b.data)
	if n > len(p) {
		n = len(p)
	}
	b.data = append(b.data, p[:n]...)
	return off, n
}

// ReadAt copies bytes from the used region.
func (b *MemoryBlock) ReadAt(p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	checkRange(KindMemory, b.id, int64(len(b.data)), off, len(p))
	return copy(p, b.data[off:]), nil
}

// WriteAt overwrites bytes inside the used region.
// Writing past the used region returns ErrBlockFull.
func (b *MemoryBlock) WriteAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(b.data)) {
		return 0, ErrBlockFull
	}
	return copy(b.data[off:], p), nil
}
