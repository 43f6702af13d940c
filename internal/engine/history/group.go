package history

// GroupScope provides a convenient way to group items using defer.
// Usage:
//
//	func moveBytes(t *Tree) {
//	    defer t.GroupScope("move").End()
//	    // ... copy, remove ...
//	}
type GroupScope struct {
	tree   *Tree
	active bool
}

// GroupScope starts a new group scope.
// Call End() or use with defer to properly close the group.
func (t *Tree) GroupScope(name string) *GroupScope {
	t.BeginGroup(name)
	return &GroupScope{tree: t, active: true}
}

// End ends the group scope.
// Safe to call multiple times; only the first call has effect.
func (g *GroupScope) End() {
	if g.active {
		g.tree.EndGroup()
		g.active = false
	}
}

// Transaction runs fn inside a group. If fn fails, every item it added is
// undone before the error is returned.
func (t *Tree) Transaction(name string, fn func() error) error {
	start := t.current
	t.BeginGroup(name)
	err := fn()
	t.EndGroup()

	if err != nil {
		for t.current != start && t.CanUndo() {
			t.undoStep(Undone)
		}
	}
	return err
}
