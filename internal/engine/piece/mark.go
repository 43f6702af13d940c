package piece

import (
	"fmt"
)

// MarkID addresses a mark. IDs are never reused while the table lives.
type MarkID uint32

// Permanent marks.
const (
	// Start is always at position 0.
	Start MarkID = 1
	// Insert is the edit cursor. Replace leaves it after the inserted range.
	Insert MarkID = 2
	// End is always at position Len().
	End MarkID = 3
)

const (
	markSentinel MarkID = 0
	startMark           = Start
	insertMark          = Insert
	endMark             = End
)

type mark struct {
	piece      ID
	off, pos   int64
	prev, next MarkID
	alive      bool
}

// MarkInfo is a snapshot of a mark's location.
type MarkInfo struct {
	ID     MarkID
	Piece  ID
	Offset int64
	Pos    int64
}

func (t *Table) initMarks() {
	t.marks = make([]mark, 4)
	t.marks[markSentinel] = mark{prev: endMark, next: startMark}
	t.marks[startMark] = mark{prev: markSentinel, next: insertMark, alive: true}
	t.marks[insertMark] = mark{prev: startMark, next: endMark, alive: true}
	t.marks[endMark] = mark{prev: insertMark, next: markSentinel, alive: true}
}

// IsPermanent reports whether id is one of Start, Insert or End.
func IsPermanent(id MarkID) bool {
	return id == Start || id == Insert || id == End
}

func (t *Table) mark(id MarkID) (*mark, error) {
	if id == markSentinel || int(id) >= len(t.marks) || !t.marks[id].alive {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMark, id)
	}
	return &t.marks[id], nil
}

// CreateMark creates a mark at pos.
func (t *Table) CreateMark(pos int64) (MarkID, error) {
	if pos < 0 || pos > t.length {
		return 0, fmt.Errorf("%w: mark at %d of %d", ErrOffsetOutOfRange, pos, t.length)
	}
	id := MarkID(len(t.marks))
	t.marks = append(t.marks, mark{alive: true})
	t.place(id, pos)
	return id, nil
}

// DestroyMark removes a mark. Permanent marks cannot be destroyed.
func (t *Table) DestroyMark(id MarkID) error {
	if IsPermanent(id) {
		return fmt.Errorf("%w: %d", ErrPermanentMark, id)
	}
	m, err := t.mark(id)
	if err != nil {
		return err
	}
	t.unlinkMark(id)
	*m = mark{}
	return nil
}

// SetMark moves a mark to an absolute position. Start and End follow the
// content and cannot be set.
func (t *Table) SetMark(id MarkID, pos int64) error {
	if id == Start || id == End {
		return fmt.Errorf("%w: %d cannot be moved", ErrPermanentMark, id)
	}
	if _, err := t.mark(id); err != nil {
		return err
	}
	if pos < 0 || pos > t.length {
		return fmt.Errorf("%w: mark at %d of %d", ErrOffsetOutOfRange, pos, t.length)
	}
	t.unlinkMark(id)
	t.place(id, pos)
	return nil
}

// MoveMark moves a mark by delta bytes.
func (t *Table) MoveMark(id MarkID, delta int64) error {
	m, err := t.mark(id)
	if err != nil {
		return err
	}
	return t.SetMark(id, m.pos+delta)
}

// MarkPos returns the absolute position of a mark.
func (t *Table) MarkPos(id MarkID) (int64, error) {
	m, err := t.mark(id)
	if err != nil {
		return 0, err
	}
	return m.pos, nil
}

// Mark returns a snapshot of a mark.
func (t *Table) Mark(id MarkID) (MarkInfo, error) {
	m, err := t.mark(id)
	if err != nil {
		return MarkInfo{}, err
	}
	return MarkInfo{ID: id, Piece: m.piece, Offset: m.off, Pos: m.pos}, nil
}

// Marks returns every live mark in list order.
func (t *Table) Marks() []MarkInfo {
	var out []MarkInfo
	for id := t.marks[markSentinel].next; id != markSentinel; id = t.marks[id].next {
		m := &t.marks[id]
		out = append(out, MarkInfo{ID: id, Piece: m.piece, Offset: m.off, Pos: m.pos})
	}
	return out
}

func (t *Table) unlinkMark(id MarkID) {
	m := &t.marks[id]
	t.marks[m.prev].next = m.next
	t.marks[m.next].prev = m.prev
	m.prev, m.next = markSentinel, markSentinel
}

// insertMarkBefore links id in front of at.
func (t *Table) insertMarkBefore(id, at MarkID) {
	prev := t.marks[at].prev
	t.marks[id].prev = prev
	t.marks[id].next = at
	t.marks[prev].next = id
	t.marks[at].prev = id
}

// place positions an unlinked mark at pos and links it after every mark
// at or before pos. End always stays last.
func (t *Table) place(id MarkID, pos int64) {
	m := &t.marks[id]
	m.pos = pos
	m.piece, m.off = t.locate(pos)

	at := t.marks[startMark].next
	for at != endMark && t.marks[at].pos <= pos {
		at = t.marks[at].next
	}
	t.insertMarkBefore(id, at)
}
