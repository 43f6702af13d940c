package piece

import (
	"fmt"
)

// Verify checks the invariants of the piece chain and the mark chain.
func (t *Table) Verify() error {
	var total int64
	seen := make(map[ID]bool)
	starts := make(map[ID]int64)

	prev := Sentinel
	for id := t.nodes[Sentinel].next; id != Sentinel; id = t.nodes[id].next {
		if seen[id] {
			return fmt.Errorf("%w: piece %d linked twice", ErrCorrupt, id)
		}
		seen[id] = true

		n := &t.nodes[id]
		if n.prev != prev {
			return fmt.Errorf("%w: piece %d prev = %d, want %d", ErrCorrupt, id, n.prev, prev)
		}
		if !n.live {
			return fmt.Errorf("%w: linked piece %d not marked live", ErrCorrupt, id)
		}
		if n.len() <= 0 {
			return fmt.Errorf("%w: piece %d is empty", ErrCorrupt, id)
		}
		starts[id] = total
		total += n.len()
		prev = id
	}
	if t.nodes[Sentinel].prev != prev {
		return fmt.Errorf("%w: sentinel prev = %d, want %d", ErrCorrupt, t.nodes[Sentinel].prev, prev)
	}
	if total != t.length {
		return fmt.Errorf("%w: pieces sum to %d, length is %d", ErrCorrupt, total, t.length)
	}

	last := int64(0)
	prevMark := markSentinel
	count := 0
	for id := t.marks[markSentinel].next; id != markSentinel; id = t.marks[id].next {
		m := &t.marks[id]
		if !m.alive {
			return fmt.Errorf("%w: dead mark %d linked", ErrCorrupt, id)
		}
		if m.prev != prevMark {
			return fmt.Errorf("%w: mark %d prev = %d, want %d", ErrCorrupt, id, m.prev, prevMark)
		}
		if m.pos < last {
			return fmt.Errorf("%w: mark %d at %d after mark at %d", ErrCorrupt, id, m.pos, last)
		}
		last = m.pos

		if m.piece == Sentinel {
			if m.off != 0 || m.pos != t.length {
				return fmt.Errorf("%w: mark %d on sentinel at offset %d, pos %d", ErrCorrupt, id, m.off, m.pos)
			}
		} else {
			start, ok := starts[m.piece]
			if !ok {
				return fmt.Errorf("%w: mark %d on unlinked piece %d", ErrCorrupt, id, m.piece)
			}
			if m.off < 0 || m.off >= t.nodes[m.piece].len() {
				return fmt.Errorf("%w: mark %d offset %d outside piece %d", ErrCorrupt, id, m.off, m.piece)
			}
			if start+m.off != m.pos {
				return fmt.Errorf("%w: mark %d cached pos %d, located at %d", ErrCorrupt, id, m.pos, start+m.off)
			}
		}
		prevMark = id
		count++
	}
	if t.marks[markSentinel].prev != prevMark {
		return fmt.Errorf("%w: mark sentinel prev = %d, want %d", ErrCorrupt, t.marks[markSentinel].prev, prevMark)
	}
	if t.marks[markSentinel].next != startMark || prevMark != endMark {
		return fmt.Errorf("%w: Start and End must bound the mark list", ErrCorrupt)
	}
	if t.marks[startMark].pos != 0 || t.marks[endMark].pos != t.length {
		return fmt.Errorf("%w: Start at %d, End at %d, length %d", ErrCorrupt,
			t.marks[startMark].pos, t.marks[endMark].pos, t.length)
	}
	return nil
}
