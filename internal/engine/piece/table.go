package piece

import (
	"fmt"

	"github.com/dshills/bytestorm/internal/engine/block"
)

// Table owns the piece arena, the live chain and the marks of one buffer.
//
// Table is not safe for concurrent use; the buffer facade serialises access.
type Table struct {
	store *block.Store

	nodes  []node
	length int64

	marks []mark

	// gen changes whenever the live chain is relinked.
	gen uint64

	// hint remembers the last piece located so sequential reads do not
	// walk from the head every time.
	hint struct {
		gen uint64
		id  ID
		pos int64
	}
}

// NewTable creates an empty table whose ranges allocate from store.
func NewTable(store *block.Store) *Table {
	if store == nil {
		store = block.Shared()
	}
	t := &Table{store: store}
	t.nodes = []node{{live: true}}
	t.initMarks()
	return t
}

// Store returns the block store backing the table.
func (t *Table) Store() *block.Store {
	return t.store
}

// Len returns the length of the live content.
func (t *Table) Len() int64 {
	return t.length
}

// Generation returns a counter that changes on every mutation of the live
// chain. Callers use it to invalidate derived data such as save plans.
func (t *Table) Generation() uint64 {
	return t.gen
}

// Pieces returns the number of live pieces.
func (t *Table) Pieces() int {
	n := 0
	for id := t.nodes[Sentinel].next; id != Sentinel; id = t.nodes[id].next {
		n++
	}
	return n
}

// newNode appends a detached piece to the arena.
func (t *Table) newNode(b block.Block, start, end int64, xf Transform) ID {
	id := ID(len(t.nodes))
	t.nodes = append(t.nodes, node{block: b, start: start, end: end, xf: xf})
	return id
}

// sub creates a detached piece holding logical bytes [k0, k1) of id.
func (t *Table) sub(id ID, k0, k1 int64) ID {
	n := t.nodes[id]
	if n.xf.Reverse {
		return t.newNode(n.block, n.end-k1, n.end-k0, n.xf)
	}
	return t.newNode(n.block, n.start+k0, n.start+k1, n.xf)
}

// chain links the given detached pieces in order and returns the range.
func (t *Table) chain(ids []ID) Range {
	var r Range
	for _, id := range ids {
		if t.nodes[id].len() == 0 {
			continue
		}
		r = t.join(r, Range{Head: id, Tail: id, Len: t.nodes[id].len()})
	}
	return r
}

// join concatenates two detached ranges.
func (t *Table) join(a, b Range) Range {
	switch {
	case a.IsEmpty():
		return b
	case b.IsEmpty():
		return a
	}
	t.nodes[a.Tail].next = b.Head
	t.nodes[b.Head].prev = a.Tail
	return Range{Head: a.Head, Tail: b.Tail, Len: a.Len + b.Len}
}

// NewRange builds a detached range over the given block spans.
// Empty spans are skipped.
func (t *Table) NewRange(spans ...block.Span) Range {
	ids := make([]ID, 0, len(spans))
	for _, s := range spans {
		if s.Len() <= 0 {
			continue
		}
		ids = append(ids, t.newNode(s.Block, s.Start, s.End, Identity))
	}
	return t.chain(ids)
}

// AppendRange copies data into the store's memory pages and returns a
// detached range over it.
func (t *Table) AppendRange(data []byte) Range {
	if len(data) == 0 {
		return Range{}
	}
	return t.NewRange(t.store.Append(data)...)
}

// FillRange returns a detached range of n bytes all equal to value, backed
// by the store's constant block.
func (t *Table) FillRange(value byte, n int64) Range {
	if n <= 0 {
		return Range{}
	}
	return t.NewRange(block.Span{Block: t.store.Constant(value), Start: 0, End: n})
}

// CopyRange returns a detached range with the content between marks a and
// b. The new pieces reference the same block bytes as the originals.
func (t *Table) CopyRange(a, b MarkID) (Range, error) {
	return t.TransformRange(a, b, Identity)
}

// TransformRange returns a detached copy of the content between marks a
// and b with xf applied on top. A reversing transform also reverses the
// order of the copied pieces.
func (t *Table) TransformRange(a, b MarkID, xf Transform) (Range, error) {
	ma, err := t.mark(a)
	if err != nil {
		return Range{}, err
	}
	mb, err := t.mark(b)
	if err != nil {
		return Range{}, err
	}
	if ma.pos > mb.pos {
		ma, mb = mb, ma
	}

	var ids []ID
	want := mb.pos - ma.pos
	for id, k := ma.piece, ma.off; want > 0; id, k = t.nodes[id].next, 0 {
		if id == Sentinel {
			return Range{}, fmt.Errorf("%w: copy ran past the end", ErrCorrupt)
		}
		n := min(t.nodes[id].len()-k, want)
		c := t.sub(id, k, k+n)
		t.nodes[c].xf = t.nodes[c].xf.Then(xf)
		ids = append(ids, c)
		want -= n
	}

	if xf.Reverse {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	return t.chain(ids), nil
}

// Reset replaces the live content with a fresh chain over spans without
// recording a splice. The arena is compacted, so every Range and Splice
// obtained earlier becomes invalid. Marks keep their positions, clamped to
// the new length.
func (t *Table) Reset(spans ...block.Span) {
	t.nodes = t.nodes[:1]
	t.nodes[Sentinel] = node{live: true}

	r := t.NewRange(spans...)
	t.link(Sentinel, Sentinel, r)
	t.length = r.Len
	t.gen++

	for idx := t.marks[markSentinel].next; idx != markSentinel; idx = t.marks[idx].next {
		m := &t.marks[idx]
		switch {
		case idx == startMark:
			m.pos = 0
		case idx == endMark:
			m.pos = t.length
		default:
			m.pos = min(m.pos, t.length)
		}
		m.piece, m.off = t.locate(m.pos)
	}
}

// link places range in between prev and next, replacing whatever was
// linked between them, and marks the range live.
func (t *Table) link(prev, next ID, r Range) {
	if r.IsEmpty() {
		t.nodes[prev].next = next
		t.nodes[next].prev = prev
		return
	}
	t.nodes[prev].next = r.Head
	t.nodes[r.Head].prev = prev
	t.nodes[r.Tail].next = next
	t.nodes[next].prev = r.Tail
	t.setLive(r, true)
}

func (t *Table) setLive(r Range, live bool) {
	if r.IsEmpty() {
		return
	}
	for id := r.Head; ; id = t.nodes[id].next {
		t.nodes[id].live = live
		if id == r.Tail {
			return
		}
	}
}

// locate returns the piece holding position pos and the offset inside it.
// pos == Len() yields the sentinel at offset 0.
func (t *Table) locate(pos int64) (ID, int64) {
	id, at := t.nodes[Sentinel].next, int64(0)
	if t.hint.gen == t.gen && t.hint.id != Sentinel && pos >= t.hint.pos {
		id, at = t.hint.id, t.hint.pos
	}

	for id != Sentinel {
		n := t.nodes[id].len()
		if pos < at+n {
			t.hint.gen, t.hint.id, t.hint.pos = t.gen, id, at
			return id, pos - at
		}
		at += n
		id = t.nodes[id].next
	}
	return Sentinel, 0
}

// Read copies len(p) bytes starting at off into p.
func (t *Table) Read(off int64, p []byte) (int, error) {
	if off < 0 || off+int64(len(p)) > t.length {
		return 0, fmt.Errorf("%w: read [%d,%d) of %d", ErrOffsetOutOfRange, off, off+int64(len(p)), t.length)
	}

	id, k := t.locate(off)
	done := 0
	for done < len(p) {
		n := &t.nodes[id]
		c := int(min(n.len()-k, int64(len(p)-done)))
		if _, err := readPiece(n.block, n.start, n.end, n.xf, p[done:done+c], k); err != nil {
			return done, err
		}
		done += c
		id, k = n.next, 0
	}
	return done, nil
}

// Walk calls fn for every live piece in order until fn returns false.
func (t *Table) Walk(fn func(Info) bool) {
	pos := int64(0)
	for id := t.nodes[Sentinel].next; id != Sentinel; id = t.nodes[id].next {
		n := &t.nodes[id]
		info := Info{ID: id, Block: n.block, Start: n.start, End: n.end, Transform: n.xf, Pos: pos}
		if !fn(info) {
			return
		}
		pos += n.len()
	}
}

// Piece returns information about a piece, live or not. Pos is only
// meaningful for live pieces and is left zero here.
func (t *Table) Piece(id ID) (Info, bool) {
	if id <= Sentinel || int(id) >= len(t.nodes) {
		return Info{}, false
	}
	n := &t.nodes[id]
	return Info{ID: id, Block: n.block, Start: n.start, End: n.end, Transform: n.xf}, true
}

// Live reports whether piece id is currently linked into the chain.
func (t *Table) Live(id ID) bool {
	return id > Sentinel && int(id) < len(t.nodes) && t.nodes[id].live
}
