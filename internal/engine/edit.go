package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/dshills/bytestorm/internal/engine/history"
	"github.com/dshills/bytestorm/internal/engine/piece"
	"github.com/dshills/bytestorm/internal/event"
	"github.com/dshills/bytestorm/internal/event/topic"
)

// Transforms accepted by Transform.
var (
	// Invert flips every bit.
	Invert = piece.Invert
	// Reverse reverses the byte order of the range.
	Reverse = piece.Reverse
)

// Xor returns the transform that xors every byte with k.
func Xor(k byte) piece.Transform {
	return piece.Xor(k)
}

// edit tracks the union of ranges changed by one public call.
type edit struct {
	b          *Buffer
	start, end int64
	touched    bool
}

func (b *Buffer) beginEdit() (*edit, error) {
	if b.closed {
		return nil, ErrClosed
	}
	return &edit{b: b}, nil
}

// splice replaces [from, to) with r and records the splice.
func (e *edit) splice(from, to int64, r piece.Range, op history.Op) error {
	b := e.b
	size := b.table.Len()
	if from < 0 || to < from || to > size {
		return fmt.Errorf("%w: [%d,%d) of %d", ErrOffsetOutOfRange, from, to, size)
	}

	a, err := b.table.CreateMark(from)
	if err != nil {
		return err
	}
	defer b.table.DestroyMark(a)
	z, err := b.table.CreateMark(to)
	if err != nil {
		return err
	}
	defer b.table.DestroyMark(z)

	s, err := b.table.Replace(a, z, r)
	if err != nil || s == nil {
		return err
	}
	b.tree.Add(s, op)

	start, end := s.Changed()
	if !e.touched {
		e.start, e.end, e.touched = start, end, true
	} else {
		e.start, e.end = min(e.start, start), max(e.end, end)
	}
	return nil
}

// done queues the buffer.changed event for the call.
func (e *edit) done() {
	if e.touched {
		enqueue(e.b, topic.BufferChanged, event.ChangedRange{Start: e.start, End: e.end})
	}
}

// mutate runs fn as one public call: under the mutex, with a single
// change event for everything fn spliced. When group is non-empty the
// splices form one history group.
func (b *Buffer) mutate(group string, fn func(e *edit) error) error {
	b.mu.Lock()
	defer b.unlock()

	e, err := b.beginEdit()
	if err != nil {
		return err
	}
	if group != "" {
		b.tree.BeginGroup(group)
		defer b.tree.EndGroup()
	}
	err = fn(e)
	e.done()
	return err
}

// markPos resolves a mark under the mutex.
func (b *Buffer) markPos(id piece.MarkID) (int64, error) {
	return b.table.MarkPos(id)
}

// Insert inserts data at mark m. Use piece.Insert for the edit cursor.
func (b *Buffer) Insert(m piece.MarkID, data []byte) error {
	return b.mutate("", func(e *edit) error {
		at, err := b.markPos(m)
		if err != nil {
			return err
		}
		return e.splice(at, at, b.table.AppendRange(data), history.OpInsert)
	})
}

// InsertAt inserts data at offset at.
func (b *Buffer) InsertAt(at int64, data []byte) error {
	return b.mutate("", func(e *edit) error {
		return e.splice(at, at, b.table.AppendRange(data), history.OpInsert)
	})
}

// InsertString inserts s at mark m.
func (b *Buffer) InsertString(m piece.MarkID, s string) error {
	return b.Insert(m, []byte(s))
}

// InsertByte inserts a single byte at mark m.
func (b *Buffer) InsertByte(m piece.MarkID, c byte) error {
	return b.Insert(m, []byte{c})
}

// InsertUint inserts v encoded in size bytes (1, 2, 4 or 8) at mark m.
func (b *Buffer) InsertUint(m piece.MarkID, v uint64, size int, order binary.ByteOrder) error {
	p := make([]byte, size)
	switch size {
	case 1:
		p[0] = byte(v)
	case 2:
		order.PutUint16(p, uint16(v))
	case 4:
		order.PutUint32(p, uint32(v))
	case 8:
		order.PutUint64(p, v)
	default:
		return fmt.Errorf("%w: %d bytes", ErrInvalidLength, size)
	}
	return b.Insert(m, p)
}

// Fill inserts n copies of value at mark m without storing them.
func (b *Buffer) Fill(m piece.MarkID, n int64, value byte) error {
	if n < 0 {
		return fmt.Errorf("%w: fill of %d bytes", ErrInvalidLength, n)
	}
	return b.mutate("", func(e *edit) error {
		at, err := b.markPos(m)
		if err != nil {
			return err
		}
		return e.splice(at, at, b.table.FillRange(value, n), history.OpFill)
	})
}

// Remove removes the bytes between marks a and b, in either order.
func (b *Buffer) Remove(a, z piece.MarkID) error {
	return b.mutate("", func(e *edit) error {
		from, to, err := b.markRange(a, z)
		if err != nil {
			return err
		}
		return e.splice(from, to, piece.Range{}, history.OpRemove)
	})
}

// RemoveRange removes the bytes in [from, to).
func (b *Buffer) RemoveRange(from, to int64) error {
	return b.mutate("", func(e *edit) error {
		return e.splice(from, to, piece.Range{}, history.OpRemove)
	})
}

// Replace replaces the bytes in [from, to) with data.
func (b *Buffer) Replace(from, to int64, data []byte) error {
	return b.mutate("", func(e *edit) error {
		return e.splice(from, to, b.table.AppendRange(data), history.OpReplace)
	})
}

// Overwrite replaces len(data) bytes at mark m with data, extending the
// buffer when data runs past the end.
func (b *Buffer) Overwrite(m piece.MarkID, data []byte) error {
	return b.mutate("", func(e *edit) error {
		at, err := b.markPos(m)
		if err != nil {
			return err
		}
		to := min(at+int64(len(data)), b.table.Len())
		return e.splice(at, to, b.table.AppendRange(data), history.OpOverwrite)
	})
}

// Copy inserts a copy of the bytes between marks a and z at mark dest.
// The copy shares storage with the original.
func (b *Buffer) Copy(a, z, dest piece.MarkID) error {
	return b.mutate("", func(e *edit) error {
		at, err := b.markPos(dest)
		if err != nil {
			return err
		}
		r, err := b.table.CopyRange(a, z)
		if err != nil {
			return err
		}
		return e.splice(at, at, r, history.OpCopy)
	})
}

// CopyRange inserts a copy of [from, to) at offset dest.
func (b *Buffer) CopyRange(from, to, dest int64) error {
	return b.mutate("", func(e *edit) error {
		r, err := b.rangeCopy(from, to, piece.Identity)
		if err != nil {
			return err
		}
		return e.splice(dest, dest, r, history.OpCopy)
	})
}

// Move moves the bytes between marks a and z to mark dest as one undo
// step. A destination strictly inside the range is rejected.
func (b *Buffer) Move(a, z, dest piece.MarkID) error {
	return b.mutate("move", func(e *edit) error {
		from, to, err := b.markRange(a, z)
		if err != nil {
			return err
		}
		at, err := b.markPos(dest)
		if err != nil {
			return err
		}
		return b.move(e, from, to, at)
	})
}

// MoveRange moves [from, to) to offset dest as one undo step.
func (b *Buffer) MoveRange(from, to, dest int64) error {
	return b.mutate("move", func(e *edit) error {
		return b.move(e, from, to, dest)
	})
}

func (b *Buffer) move(e *edit, from, to, dest int64) error {
	if dest > from && dest < to {
		return fmt.Errorf("%w: %d in [%d,%d)", ErrOverlappingRanges, dest, from, to)
	}
	if dest == from || dest == to || from == to {
		return nil
	}
	r, err := b.rangeCopy(from, to, piece.Identity)
	if err != nil {
		return err
	}
	if err := e.splice(dest, dest, r, history.OpMove); err != nil {
		return err
	}
	if dest < from {
		n := to - from
		from, to = from+n, to+n
	}
	return e.splice(from, to, piece.Range{}, history.OpMove)
}

// Transform replaces the bytes between marks a and z with their transform.
func (b *Buffer) Transform(a, z piece.MarkID, xf piece.Transform) error {
	return b.mutate("", func(e *edit) error {
		from, to, err := b.markRange(a, z)
		if err != nil {
			return err
		}
		return b.transform(e, from, to, xf)
	})
}

// TransformRange replaces the bytes in [from, to) with their transform.
func (b *Buffer) TransformRange(from, to int64, xf piece.Transform) error {
	return b.mutate("", func(e *edit) error {
		return b.transform(e, from, to, xf)
	})
}

func (b *Buffer) transform(e *edit, from, to int64, xf piece.Transform) error {
	if xf.IsIdentity() || from == to {
		return nil
	}
	r, err := b.rangeCopy(from, to, xf)
	if err != nil {
		return err
	}
	return e.splice(from, to, r, history.OpTransform)
}

// rangeCopy builds a detached transformed copy of [from, to).
func (b *Buffer) rangeCopy(from, to int64, xf piece.Transform) (piece.Range, error) {
	size := b.table.Len()
	if from < 0 || to < from || to > size {
		return piece.Range{}, fmt.Errorf("%w: [%d,%d) of %d", ErrOffsetOutOfRange, from, to, size)
	}
	a, err := b.table.CreateMark(from)
	if err != nil {
		return piece.Range{}, err
	}
	defer b.table.DestroyMark(a)
	z, err := b.table.CreateMark(to)
	if err != nil {
		return piece.Range{}, err
	}
	defer b.table.DestroyMark(z)
	return b.table.TransformRange(a, z, xf)
}

// markRange resolves two marks to an ordered offset pair.
func (b *Buffer) markRange(a, z piece.MarkID) (int64, int64, error) {
	from, err := b.markPos(a)
	if err != nil {
		return 0, 0, err
	}
	to, err := b.markPos(z)
	if err != nil {
		return 0, 0, err
	}
	if from > to {
		from, to = to, from
	}
	return from, to, nil
}
