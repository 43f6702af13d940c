package history

import (
	"errors"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/engine/piece"
)

type fixture struct {
	t     *testing.T
	table *piece.Table
	tree  *Tree
}

func newFixture(t *testing.T, content string, opts ...Option) *fixture {
	t.Helper()
	tbl := piece.NewTable(block.NewStore(block.WithPageSize(16)))
	if content != "" {
		tbl.Reset(tbl.Store().Append([]byte(content))...)
	}
	return &fixture{t: t, table: tbl, tree: NewTree(tbl, opts...)}
}

func (f *fixture) content() string {
	f.t.Helper()
	p := make([]byte, f.table.Len())
	if _, err := f.table.Read(0, p); err != nil {
		f.t.Fatalf("Read failed: %v", err)
	}
	return string(p)
}

func (f *fixture) replace(from, to int64, data string, op Op) ItemID {
	f.t.Helper()
	a, err := f.table.CreateMark(from)
	if err != nil {
		f.t.Fatalf("CreateMark failed: %v", err)
	}
	b, err := f.table.CreateMark(to)
	if err != nil {
		f.t.Fatalf("CreateMark failed: %v", err)
	}
	defer f.table.DestroyMark(a)
	defer f.table.DestroyMark(b)

	s, err := f.table.Replace(a, b, f.table.AppendRange([]byte(data)))
	if err != nil {
		f.t.Fatalf("Replace failed: %v", err)
	}
	return f.tree.Add(s, op)
}

func (f *fixture) insert(at int64, data string) ItemID {
	return f.replace(at, at, data, OpInsert)
}

func TestNewTree(t *testing.T) {
	f := newFixture(t, "")

	if f.tree.Current() != RootID {
		t.Errorf("Current() = %d, want root", f.tree.Current())
	}
	if f.tree.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.tree.Len())
	}
	if f.tree.Undo() {
		t.Error("Undo() on fresh tree = true, want false")
	}
	if f.tree.Redo() {
		t.Error("Redo() on fresh tree = true, want false")
	}
}

func TestUndoRedoACB(t *testing.T) {
	f := newFixture(t, "")

	for _, step := range []struct {
		back int64
		data string
	}{
		{0, "a"},
		{0, "b"},
		{1, "c"},
	} {
		if step.back > 0 {
			if err := f.table.MoveMark(piece.Insert, -step.back); err != nil {
				t.Fatalf("MoveMark failed: %v", err)
			}
		}
		s, err := f.table.Replace(piece.Insert, piece.Insert, f.table.AppendRange([]byte(step.data)))
		if err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		f.tree.Add(s, OpInsert)
	}

	if got := f.content(); got != "acb" {
		t.Fatalf("content = %q, want %q", got, "acb")
	}

	for i := range 3 {
		if !f.tree.Undo() {
			t.Fatalf("Undo() #%d = false", i+1)
		}
	}
	if got := f.content(); got != "" {
		t.Errorf("content after undo = %q, want empty", got)
	}
	if f.tree.Undo() {
		t.Error("Undo() past root = true, want false")
	}

	for i := range 3 {
		if !f.tree.Redo() {
			t.Fatalf("Redo() #%d = false", i+1)
		}
	}
	if got := f.content(); got != "acb" {
		t.Errorf("content after redo = %q, want %q", got, "acb")
	}
	if f.tree.Redo() {
		t.Error("Redo() past tip = true, want false")
	}
}

func TestBranching(t *testing.T) {
	f := newFixture(t, "base")

	first := f.insert(4, "-one")
	f.tree.Undo()
	second := f.insert(4, "-two")

	if got := f.tree.Children(RootID); !slices.Equal(got, []ItemID{second, first}) {
		t.Errorf("Children(root) = %v, want [%d %d]", got, second, first)
	}

	f.tree.Undo()
	f.tree.Redo()
	if got := f.content(); got != "base-two" {
		t.Errorf("Redo() took %q, want newest branch", got)
	}

	if !f.tree.Jump(first) {
		t.Fatal("Jump(first) = false")
	}
	if got := f.content(); got != "base-one" {
		t.Errorf("content after Jump = %q, want %q", got, "base-one")
	}
	if got := f.tree.Children(RootID); got[0] != first {
		t.Errorf("Jump did not promote branch: children = %v", got)
	}
}

func TestJumpNoop(t *testing.T) {
	f := newFixture(t, "x")
	id := f.insert(1, "y")

	if f.tree.Jump(id) {
		t.Error("Jump(current) = true, want false")
	}
	if f.tree.Jump(ItemID(42)) {
		t.Error("Jump(unknown) = true, want false")
	}
	if f.tree.Jump(ItemID(-1)) {
		t.Error("Jump(-1) = true, want false")
	}
}

func TestGroupUndoRedo(t *testing.T) {
	f := newFixture(t, "0123456789")

	f.insert(0, "a")
	f.tree.BeginGroup("move")
	f.replace(2, 4, "", OpRemove)
	f.tree.BeginGroup("nested")
	f.insert(5, "xy")
	f.tree.EndGroup()
	f.tree.EndGroup()
	after := f.content()

	if f.tree.InGroup() {
		t.Error("InGroup() after EndGroup = true")
	}

	f.tree.Undo()
	if got := f.content(); got != "a0123456789" {
		t.Errorf("content after grouped Undo = %q, want %q", got, "a0123456789")
	}

	f.tree.Redo()
	if got := f.content(); got != after {
		t.Errorf("content after grouped Redo = %q, want %q", got, after)
	}

	it, ok := f.tree.Item(f.tree.Current())
	if !ok || it.Group == 0 || it.GroupName != "move" {
		t.Errorf("Item(current) = %+v, want group %q", it, "move")
	}
}

func TestListener(t *testing.T) {
	var got []Kind
	f := newFixture(t, "", WithListener(func(c Change) {
		got = append(got, c.Kind)
	}))

	a := f.insert(0, "a")
	f.insert(1, "b")
	f.tree.Undo()
	f.tree.Redo()
	f.tree.Jump(a)

	want := []Kind{Added, Added, Undone, Redone, Jumped}
	if !slices.Equal(got, want) {
		t.Errorf("changes = %v, want %v", got, want)
	}
}

func TestItemMetadata(t *testing.T) {
	clock := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f := newFixture(t, "abc", WithClock(func() time.Time { return clock }))

	id := f.replace(0, 2, "Z", OpReplace)
	it, ok := f.tree.Item(id)
	if !ok {
		t.Fatal("Item() not found")
	}
	if it.Op != OpReplace || it.Op.String() != "replace" {
		t.Errorf("Op = %v, want replace", it.Op)
	}
	if !it.Time.Equal(clock) {
		t.Errorf("Time = %v, want %v", it.Time, clock)
	}
	if it.Delta() != -1 {
		t.Errorf("Delta() = %d, want -1", it.Delta())
	}
	if !it.Active() {
		t.Error("current item not active")
	}
	if got := f.tree.Path(id); !slices.Equal(got, []ItemID{RootID, id}) {
		t.Errorf("Path() = %v", got)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	f := newFixture(t, "abc")
	errBoom := errors.New("boom")

	err := f.tree.Transaction("batch", func() error {
		f.insert(3, "d")
		f.insert(4, "e")
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Transaction() error = %v, want errBoom", err)
	}
	if got := f.content(); got != "abc" {
		t.Errorf("content = %q, want %q", got, "abc")
	}
	if f.tree.Current() != RootID {
		t.Errorf("Current() = %d, want root", f.tree.Current())
	}
}

func TestGroupScope(t *testing.T) {
	f := newFixture(t, "")
	func() {
		defer f.tree.GroupScope("scope").End()
		f.insert(0, "a")
		f.insert(1, "b")
	}()

	f.tree.Undo()
	if got := f.content(); got != "" {
		t.Errorf("content = %q, want empty", got)
	}
}

// TestJumpMatchesRecordedState builds random trees and checks that jumping
// to any item reproduces the bytes and marks that item produced when it was
// added.
func TestJumpMatchesRecordedState(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		f := newFixture(t, "history tree")
		user, err := f.table.CreateMark(5)
		if err != nil {
			t.Fatalf("CreateMark failed: %v", err)
		}

		type state struct {
			content string
			marks   []piece.MarkInfo
		}
		capture := func() state {
			return state{content: f.content(), marks: f.table.Marks()}
		}
		states := map[ItemID]state{RootID: capture()}

		for range 80 {
			switch rng.Intn(6) {
			case 0:
				f.tree.Undo()
			case 1:
				f.tree.Redo()
			case 2:
				f.tree.Jump(ItemID(rng.Intn(f.tree.Len())))
			default:
				n := f.table.Len()
				lo := rng.Int63n(n + 1)
				hi := lo + rng.Int63n(n-lo+1)
				data := string(rune('a' + rng.Intn(26)))
				if rng.Intn(3) == 0 {
					data = ""
				}
				if lo == hi && data == "" {
					continue
				}
				id := f.replace(lo, hi, data, OpReplace)
				states[id] = capture()
			}
			if err := f.table.Verify(); err != nil {
				t.Fatalf("seed %d: Verify() = %v", seed, err)
			}
		}

		for id, want := range states {
			if f.tree.Current() != id {
				f.tree.Jump(id)
			}
			got := capture()
			if got.content != want.content {
				t.Fatalf("seed %d: Jump(%d) content = %q, want %q", seed, id, got.content, want.content)
			}
			if pos, _ := f.table.MarkPos(user); pos != markPos(want.marks, user) {
				t.Fatalf("seed %d: Jump(%d) user mark at %d, want %d", seed, id, pos, markPos(want.marks, user))
			}
		}
	}
}

func markPos(marks []piece.MarkInfo, id piece.MarkID) int64 {
	for _, m := range marks {
		if m.ID == id {
			return m.Pos
		}
	}
	return -1
}

// TestJumpEqualsNaivePath compares Jump against undoing to the root and
// redoing along the target's path.
func TestJumpEqualsNaivePath(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	f := newFixture(t, "0123456789")

	for range 40 {
		if rng.Intn(3) == 0 {
			f.tree.Jump(ItemID(rng.Intn(f.tree.Len())))
			continue
		}
		at := rng.Int63n(f.table.Len() + 1)
		f.insert(at, string(rune('A'+rng.Intn(26))))
	}

	for target := range ItemID(f.tree.Len()) {
		f.tree.Jump(target)
		viaJump := f.content()

		for f.tree.Undo() {
		}
		for _, id := range f.tree.Path(target)[1:] {
			f.tree.Jump(id)
		}
		if got := f.content(); got != viaJump {
			t.Fatalf("target %d: naive path = %q, Jump = %q", target, got, viaJump)
		}
	}
}
