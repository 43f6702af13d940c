package piece

import (
	"fmt"
	"slices"
)

// MarkPos records where a mark was before a splice swallowed it.
type MarkPos struct {
	ID  MarkID
	Pos int64
}

// Splice describes one relink of the live chain. Old and New are detached
// ranges that sit between the anchors Prev and Next; exactly one of them is
// linked at any time. Split fragments are part of New, so Old always holds
// whole original pieces.
type Splice struct {
	// Prev and Next are the live neighbours the ranges sit between.
	Prev, Next ID

	// RegionStart is the absolute position of the first byte after Prev.
	RegionStart int64

	// Pos is where the edit starts. OldLen bytes were replaced by NewLen.
	Pos    int64
	OldLen int64
	NewLen int64

	Old Range
	New Range

	// Displaced lists the marks collapsed onto Pos by the last forward
	// application, with their earlier positions.
	Displaced []MarkPos

	// InsertBefore is the Insert mark position before the last forward
	// application.
	InsertBefore int64
}

// Delta returns the change in buffer length caused by the splice.
func (s *Splice) Delta() int64 {
	return s.NewLen - s.OldLen
}

// Changed returns the affected range [start, end) of buffer positions.
func (s *Splice) Changed() (start, end int64) {
	return s.Pos, s.Pos + max(s.OldLen, s.NewLen)
}

// split is the result of splitPiece.
type split struct {
	prev, next  ID
	regionStart int64
	old         Range
	left, right ID
}

// splitPiece puts marks a and b (a.pos <= b.pos) on piece boundaries. It
// does not touch the live chain: it returns the whole pieces between the
// anchors that must be unlinked and the fragments that cover the bytes
// before a and after b inside those pieces.
func (t *Table) splitPiece(a, b *mark) split {
	var sp split

	if a.pos == b.pos && a.off == 0 {
		sp.prev = t.nodes[a.piece].prev
		sp.next = a.piece
		sp.regionStart = a.pos
		return sp
	}

	sp.prev = t.nodes[a.piece].prev
	sp.regionStart = a.pos - a.off
	if a.off > 0 {
		sp.left = t.sub(a.piece, 0, a.off)
	}

	last := b.piece
	if b.off == 0 {
		last = t.nodes[b.piece].prev
		sp.next = b.piece
	} else {
		sp.next = t.nodes[b.piece].next
		sp.right = t.sub(b.piece, b.off, t.nodes[b.piece].len())
	}

	sp.old = Range{Head: a.piece, Tail: last}
	for id := a.piece; ; id = t.nodes[id].next {
		sp.old.Len += t.nodes[id].len()
		if id == last {
			break
		}
	}
	return sp
}

// Replace substitutes the content between marks a and b with r, which
// must be a detached range obtained from this table and not used before.
// The marks may be given in either order. A call that neither removes nor
// inserts anything returns a nil Splice.
func (t *Table) Replace(a, b MarkID, r Range) (*Splice, error) {
	ma, err := t.mark(a)
	if err != nil {
		return nil, err
	}
	mb, err := t.mark(b)
	if err != nil {
		return nil, err
	}
	if ma.pos > mb.pos {
		ma, mb = mb, ma
	}
	if ma.pos == mb.pos && r.IsEmpty() {
		return nil, nil
	}

	sp := t.splitPiece(ma, mb)

	var frags []ID
	if sp.left != Sentinel {
		frags = append(frags, sp.left)
	}
	nr := t.chain(frags)
	nr = t.join(nr, r)
	if sp.right != Sentinel {
		nr = t.join(nr, t.chain([]ID{sp.right}))
	}

	s := &Splice{
		Prev:        sp.prev,
		Next:        sp.next,
		RegionStart: sp.regionStart,
		Pos:         ma.pos,
		OldLen:      mb.pos - ma.pos,
		NewLen:      r.Len,
		Old:         sp.old,
		New:         nr,
	}
	t.apply(s, true)
	return s, nil
}

// Apply re-applies a splice that was reverted. The chain must be in the
// state right after Revert(s).
func (t *Table) Apply(s *Splice) {
	t.apply(s, true)
}

// Revert undoes a splice. The chain must be in the state right after the
// splice was applied.
func (t *Table) Revert(s *Splice) {
	t.apply(s, false)
}

func (t *Table) apply(s *Splice, forward bool) {
	out, in := s.New, s.Old
	removed, inserted := s.NewLen, s.OldLen
	if forward {
		out, in = s.Old, s.New
		removed, inserted = s.OldLen, s.NewLen
	}

	first := s.Next
	if !out.IsEmpty() {
		first = out.Head
	}
	if t.nodes[s.Prev].next != first {
		panic(fmt.Sprintf("piece: splice anchors %d..%d do not match the live chain", s.Prev, s.Next))
	}

	p0 := s.Pos
	p1 := p0 + removed
	delta := inserted - removed
	regionEnd := s.RegionStart + out.Len

	var restore map[MarkID]int64
	if forward {
		s.InsertBefore = t.marks[insertMark].pos
		s.Displaced = s.Displaced[:0]
	} else if len(s.Displaced) > 0 {
		restore = make(map[MarkID]int64, len(s.Displaced))
		for _, d := range s.Displaced {
			restore[d.ID] = d.Pos
		}
	}

	t.setLive(out, false)
	t.link(s.Prev, s.Next, in)
	t.length += delta
	t.gen++

	t.unlinkMark(insertMark)

	var region []MarkID
	for id := t.marks[markSentinel].next; id != markSentinel; id = t.marks[id].next {
		if id == startMark {
			continue
		}
		m := &t.marks[id]
		if old, ok := restore[id]; ok && m.pos == p0 {
			m.pos = old
			region = append(region, id)
			continue
		}
		switch {
		case m.pos < s.RegionStart:
		case m.pos < regionEnd:
			switch {
			case m.pos >= p1:
				m.pos += delta
			case m.pos >= p0:
				if forward {
					s.Displaced = append(s.Displaced, MarkPos{ID: id, Pos: m.pos})
				}
				m.pos = p0
			}
			region = append(region, id)
		default:
			m.pos += delta
			if id == endMark {
				m.piece, m.off = Sentinel, 0
			}
		}
	}

	t.rehome(s, in, region)

	if forward {
		t.place(insertMark, p0+inserted)
	} else {
		t.place(insertMark, s.InsertBefore)
	}

	st := &t.marks[startMark]
	st.pos, st.piece, st.off = 0, t.nodes[Sentinel].next, 0
}

// rehome relinks the marks that sit in the relinked region in position
// order and points them at the pieces of the range now linked there.
func (t *Table) rehome(s *Splice, in Range, region []MarkID) {
	if len(region) == 0 {
		return
	}

	for _, id := range region {
		t.unlinkMark(id)
	}
	slices.SortStableFunc(region, func(a, b MarkID) int {
		return cmpPos(t.marks[a].pos, t.marks[b].pos)
	})

	at := t.marks[startMark].next
	for at != endMark && t.marks[at].pos < s.RegionStart {
		at = t.marks[at].next
	}

	cur, pos := s.Next, s.RegionStart
	if !in.IsEmpty() {
		cur = in.Head
	}
	for _, id := range region {
		m := &t.marks[id]
		for cur != s.Next && m.pos >= pos+t.nodes[cur].len() {
			pos += t.nodes[cur].len()
			cur = t.nodes[cur].next
		}
		m.piece, m.off = cur, m.pos-pos
		t.insertMarkBefore(id, at)
	}
}

func cmpPos(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
