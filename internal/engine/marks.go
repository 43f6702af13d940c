package engine

import "github.com/dshills/bytestorm/internal/engine/piece"

// CreateMark creates a mark at pos.
func (b *Buffer) CreateMark(pos int64) (piece.MarkID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	return b.table.CreateMark(pos)
}

// DestroyMark removes a mark. Start, Insert and End cannot be destroyed.
func (b *Buffer) DestroyMark(id piece.MarkID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return b.table.DestroyMark(id)
}

// SetMark moves a mark to pos. Start and End cannot be set.
func (b *Buffer) SetMark(id piece.MarkID, pos int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return b.table.SetMark(id, pos)
}

// MoveMark moves a mark by delta bytes.
func (b *Buffer) MoveMark(id piece.MarkID, delta int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return b.table.MoveMark(id, delta)
}

// MarkPos returns the position of a mark.
func (b *Buffer) MarkPos(id piece.MarkID) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	return b.table.MarkPos(id)
}

// Marks returns a snapshot of every mark in position order.
func (b *Buffer) Marks() []piece.MarkInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.Marks()
}
