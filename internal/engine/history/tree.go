package history

import (
	"time"

	"github.com/dshills/bytestorm/internal/engine/piece"
)

// Applier replays splices. *piece.Table implements it.
type Applier interface {
	Apply(s *piece.Splice)
	Revert(s *piece.Splice)
}

// Option configures a Tree.
type Option func(*Tree)

// WithClock sets the time source used to stamp items.
func WithClock(now func() time.Time) Option {
	return func(t *Tree) {
		if now != nil {
			t.now = now
		}
	}
}

// WithListener registers a listener at construction.
func WithListener(l Listener) Option {
	return func(t *Tree) {
		if l != nil {
			t.listeners = append(t.listeners, l)
		}
	}
}

// Tree is a branching undo history.
//
// Tree is not safe for concurrent use; the buffer that owns it serialises
// access.
type Tree struct {
	applier Applier
	items   []*Item
	current ItemID

	groupDepth int
	groupName  string
	group      uint64
	nextGroup  uint64

	listeners []Listener
	now       func() time.Time
}

// NewTree creates a tree holding only the root item.
func NewTree(a Applier, opts ...Option) *Tree {
	t := &Tree{
		applier: a,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset()
	return t
}

// Reset drops every item and starts over with a fresh root.
func (t *Tree) Reset() {
	t.items = []*Item{{ID: RootID, Parent: RootID, Op: OpRoot, Time: t.now(), active: true}}
	t.current = RootID
	t.groupDepth = 0
	t.group = 0
}

// OnChange registers a listener.
func (t *Tree) OnChange(l Listener) {
	t.listeners = append(t.listeners, l)
}

func (t *Tree) notify(c Change) {
	for _, l := range t.listeners {
		l(c)
	}
}

// Add records a splice that was just applied and makes it current.
// A nil splice records nothing and returns the current id.
func (t *Tree) Add(s *piece.Splice, op Op) ItemID {
	if s == nil {
		return t.current
	}

	id := ItemID(len(t.items))
	it := &Item{
		ID:     id,
		Parent: t.current,
		Op:     op,
		Time:   t.now(),
		Splice: s,
		active: true,
	}
	if t.groupDepth > 0 {
		it.Group = t.group
		it.GroupName = t.groupName
	}
	t.items = append(t.items, it)

	parent := t.items[t.current]
	parent.children = append([]ItemID{id}, parent.children...)

	old := t.current
	t.current = id
	t.notify(Change{Kind: Added, Old: old, New: id, Splice: s})
	return id
}

// undoStep reverts the current item and moves to its parent.
func (t *Tree) undoStep(kind Kind) *Item {
	it := t.items[t.current]
	t.applier.Revert(it.Splice)
	it.active = false
	t.current = it.Parent
	t.notify(Change{Kind: kind, Old: it.ID, New: it.Parent, Splice: it.Splice, Reverted: true})
	return it
}

// redoStep applies child, which must be a child of the current item.
func (t *Tree) redoStep(kind Kind, child *Item) {
	t.applier.Apply(child.Splice)
	child.active = true
	old := t.current
	t.current = child.ID
	t.notify(Change{Kind: kind, Old: old, New: child.ID, Splice: child.Splice})
}

// CanUndo returns true if the current item is not the root.
func (t *Tree) CanUndo() bool {
	return t.current != RootID
}

// CanRedo returns true if the current item has a child.
func (t *Tree) CanRedo() bool {
	return len(t.items[t.current].children) > 0
}

// Undo reverts the current item, or the whole group it belongs to.
// It returns false if there is nothing to undo.
func (t *Tree) Undo() bool {
	if !t.CanUndo() {
		return false
	}
	it := t.undoStep(Undone)
	for it.Group != 0 && t.current != RootID && t.items[t.current].Group == it.Group {
		it = t.undoStep(Undone)
	}
	return true
}

// Redo applies the preferred child of the current item, continuing through
// the rest of its group. It returns false if there is nothing to redo.
func (t *Tree) Redo() bool {
	if !t.CanRedo() {
		return false
	}
	child := t.items[t.items[t.current].children[0]]
	t.redoStep(Redone, child)
	for child.Group != 0 {
		cur := t.items[t.current]
		if len(cur.children) == 0 {
			break
		}
		next := t.items[cur.children[0]]
		if next.Group != child.Group {
			break
		}
		child = next
		t.redoStep(Redone, child)
	}
	return true
}

// Jump makes target the current item, undoing to the nearest active
// ancestor and redoing down to target. It returns false if target is
// unknown or already current.
func (t *Tree) Jump(target ItemID) bool {
	if target < RootID || int(target) >= len(t.items) || target == t.current {
		return false
	}

	var path []*Item
	join := t.items[target]
	for !join.active {
		path = append(path, join)
		join = t.items[join.Parent]
	}

	for t.current != join.ID {
		t.undoStep(Jumped)
	}

	for i := len(path) - 1; i >= 0; i-- {
		it := path[i]
		t.promote(it)
		t.redoStep(Jumped, it)
	}
	return true
}

// promote moves it to the front of its parent's children.
func (t *Tree) promote(it *Item) {
	parent := t.items[it.Parent]
	for i, id := range parent.children {
		if id == it.ID {
			copy(parent.children[1:i+1], parent.children[:i])
			parent.children[0] = it.ID
			return
		}
	}
}

// BeginGroup starts a group. Calls nest; only the outermost name is kept.
func (t *Tree) BeginGroup(name string) {
	if t.groupDepth == 0 {
		t.nextGroup++
		t.group = t.nextGroup
		t.groupName = name
	}
	t.groupDepth++
}

// EndGroup closes the innermost open group.
func (t *Tree) EndGroup() {
	if t.groupDepth == 0 {
		return
	}
	t.groupDepth--
	if t.groupDepth == 0 {
		t.group = 0
		t.groupName = ""
	}
}

// InGroup returns true while a group is open.
func (t *Tree) InGroup() bool {
	return t.groupDepth > 0
}

// Current returns the current item id.
func (t *Tree) Current() ItemID {
	return t.current
}

// Root returns the root item id.
func (t *Tree) Root() ItemID {
	return RootID
}

// Len returns the number of items including the root.
func (t *Tree) Len() int {
	return len(t.items)
}

// Item returns a copy of an item.
func (t *Tree) Item(id ItemID) (Item, bool) {
	if id < RootID || int(id) >= len(t.items) {
		return Item{}, false
	}
	it := *t.items[id]
	it.children = nil
	return it, true
}

// Children returns the children of id, preferred branch first.
func (t *Tree) Children(id ItemID) []ItemID {
	if id < RootID || int(id) >= len(t.items) {
		return nil
	}
	return append([]ItemID(nil), t.items[id].children...)
}

// Path returns the ids from the root down to id.
func (t *Tree) Path(id ItemID) []ItemID {
	if id < RootID || int(id) >= len(t.items) {
		return nil
	}
	var path []ItemID
	for {
		path = append(path, id)
		if id == RootID {
			break
		}
		id = t.items[id].Parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
