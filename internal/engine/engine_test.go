package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"

	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/engine/history"
	"github.com/dshills/bytestorm/internal/engine/piece"
	"github.com/dshills/bytestorm/internal/event"
	"github.com/dshills/bytestorm/internal/event/topic"
)

func newTestBuffer(t testing.TB, content string, opts ...Option) *Buffer {
	t.Helper()
	opts = append([]Option{
		WithStore(block.NewStore(block.WithPageSize(8))),
		WithContent([]byte(content)),
	}, opts...)
	return New(opts...)
}

func contentOf(t testing.TB, b *Buffer) string {
	t.Helper()
	p, err := b.Bytes(0, b.Len())
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	return string(p)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// ============================================================================
// Basic Operations
// ============================================================================

func TestNew(t *testing.T) {
	b := New(WithStore(block.NewStore()))
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	if b.Path() != "" {
		t.Errorf("Path() = %q, want empty", b.Path())
	}
	if b.Modified() {
		t.Error("empty buffer reports Modified()")
	}
	if b.ID() == New().ID() {
		t.Error("buffers share an id")
	}
}

func TestNewWithContent(t *testing.T) {
	b := newTestBuffer(t, "Hello, World!")
	if got := contentOf(t, b); got != "Hello, World!" {
		t.Errorf("content = %q, want %q", got, "Hello, World!")
	}
	if err := b.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestOpen(t *testing.T) {
	path := writeFile(t, "0123456789")
	b, err := Open(path, WithStore(block.NewStore()))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	if got := contentOf(t, b); got != "0123456789" {
		t.Errorf("content = %q", got)
	}
	if b.Pieces() != 1 {
		t.Errorf("Pieces() = %d, want 1", b.Pieces())
	}
	if b.Modified() {
		t.Error("fresh buffer reports Modified()")
	}
	if !b.CanSaveInPlace() {
		t.Error("fresh buffer cannot be saved in place")
	}
	if p := b.Plan(); p.WriteBytes != 0 {
		t.Errorf("Plan().WriteBytes = %d, want 0", p.WriteBytes)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), WithStore(block.NewStore()))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() error = %v, want ErrNotExist", err)
	}
}

func TestInsertACB(t *testing.T) {
	b := newTestBuffer(t, "")

	steps := []func() error{
		func() error { return b.InsertString(piece.Insert, "a") },
		func() error { return b.InsertString(piece.Insert, "b") },
		func() error {
			if err := b.MoveMark(piece.Insert, -1); err != nil {
				return err
			}
			return b.InsertString(piece.Insert, "c")
		},
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}
	if got := contentOf(t, b); got != "acb" {
		t.Fatalf("content = %q, want %q", got, "acb")
	}

	for i := 0; i < 3; i++ {
		if !b.Undo() {
			t.Fatalf("Undo() #%d = false", i+1)
		}
	}
	if got := contentOf(t, b); got != "" {
		t.Errorf("after 3 undos content = %q, want empty", got)
	}
	if b.Undo() {
		t.Error("Undo() past the root = true")
	}

	for i := 0; i < 3; i++ {
		if !b.Redo() {
			t.Fatalf("Redo() #%d = false", i+1)
		}
	}
	if got := contentOf(t, b); got != "acb" {
		t.Errorf("after 3 redos content = %q, want %q", got, "acb")
	}
	if b.Redo() {
		t.Error("Redo() at the tip = true")
	}
}

// ============================================================================
// Mutations
// ============================================================================

type mutation struct {
	name string
	prep func(b *Buffer) error
	op   func(b *Buffer) error
	want string
}

var mutations = []mutation{
	{
		name: "insert",
		op:   func(b *Buffer) error { return b.InsertAt(3, []byte("xy")) },
		want: "012xy3456789",
	},
	{
		name: "insert at end",
		op:   func(b *Buffer) error { return b.InsertString(piece.End, "!") },
		want: "0123456789!",
	},
	{
		name: "remove",
		op:   func(b *Buffer) error { return b.RemoveRange(2, 5) },
		want: "0156789",
	},
	{
		name: "remove between marks",
		prep: func(b *Buffer) error { return b.SetMark(piece.Insert, 8) },
		op:   func(b *Buffer) error { return b.Remove(piece.Insert, piece.Start) },
		want: "89",
	},
	{
		name: "replace",
		op:   func(b *Buffer) error { return b.Replace(1, 3, []byte("ab")) },
		want: "0ab3456789",
	},
	{
		name: "copy to end",
		op:   func(b *Buffer) error { return b.CopyRange(0, 3, 10) },
		want: "0123456789012",
	},
	{
		name: "copy into middle",
		op:   func(b *Buffer) error { return b.CopyRange(7, 10, 2) },
		want: "0178923456789",
	},
	{
		name: "copy between marks",
		op:   func(b *Buffer) error { return b.Copy(piece.Start, piece.End, piece.End) },
		want: "01234567890123456789",
	},
	{
		name: "move forward",
		op:   func(b *Buffer) error { return b.MoveRange(0, 3, 10) },
		want: "3456789012",
	},
	{
		name: "move backward",
		op:   func(b *Buffer) error { return b.MoveRange(7, 10, 0) },
		want: "7890123456",
	},
	{
		name: "move onto own end",
		op:   func(b *Buffer) error { return b.MoveRange(2, 4, 4) },
		want: "0123456789",
	},
	{
		name: "move between marks",
		prep: func(b *Buffer) error { return b.SetMark(piece.Insert, 2) },
		op:   func(b *Buffer) error { return b.Move(piece.Start, piece.Insert, piece.End) },
		want: "2345678901",
	},
	{
		name: "fill",
		op:   func(b *Buffer) error { return b.Fill(piece.Start, 3, 'z') },
		want: "zzz0123456789",
	},
	{
		name: "reverse",
		op:   func(b *Buffer) error { return b.TransformRange(0, 4, Reverse) },
		want: "3210456789",
	},
	{
		name: "xor",
		op:   func(b *Buffer) error { return b.TransformRange(0, 2, Xor(0x20)) },
		want: "\x10\x1123456789",
	},
	{
		name: "invert between marks",
		prep: func(b *Buffer) error { return b.SetMark(piece.Insert, 9) },
		op:   func(b *Buffer) error { return b.Transform(piece.Insert, piece.End, Invert) },
		want: "012345678\xc6",
	},
	{
		name: "overwrite past end",
		prep: func(b *Buffer) error { return b.SetMark(piece.Insert, 8) },
		op:   func(b *Buffer) error { return b.Overwrite(piece.Insert, []byte("abcd")) },
		want: "01234567abcd",
	},
	{
		name: "insert uint",
		prep: func(b *Buffer) error { return b.SetMark(piece.Insert, 0) },
		op:   func(b *Buffer) error { return b.InsertUint(piece.Insert, 0x4142, 2, binary.BigEndian) },
		want: "AB0123456789",
	},
	{
		name: "insert byte",
		op:   func(b *Buffer) error { return b.InsertByte(piece.Start, '#') },
		want: "#0123456789",
	},
}

func TestMutations(t *testing.T) {
	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuffer(t, "0123456789")
			if tt.prep != nil {
				if err := tt.prep(b); err != nil {
					t.Fatalf("prep error = %v", err)
				}
			}
			if err := tt.op(b); err != nil {
				t.Fatalf("op error = %v", err)
			}
			if got := contentOf(t, b); got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
			if err := b.Verify(); err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestMutationsUndoExactly(t *testing.T) {
	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuffer(t, "0123456789")
			user, err := b.CreateMark(5)
			if err != nil {
				t.Fatalf("CreateMark() error = %v", err)
			}
			if tt.prep != nil {
				if err := tt.prep(b); err != nil {
					t.Fatalf("prep error = %v", err)
				}
			}

			before, beforeMarks := contentOf(t, b), b.Marks()
			if err := tt.op(b); err != nil {
				t.Fatalf("op error = %v", err)
			}
			after, afterMarks := contentOf(t, b), b.Marks()

			if before != after && !b.Undo() {
				t.Fatal("Undo() = false")
			}
			if got := contentOf(t, b); got != before {
				t.Errorf("after undo content = %q, want %q", got, before)
			}
			assertMarks(t, "undo", b.Marks(), beforeMarks)
			if b.History().CanUndo() {
				t.Error("CanUndo() after undoing the only step")
			}

			if before != after && !b.Redo() {
				t.Fatal("Redo() = false")
			}
			if got := contentOf(t, b); got != after {
				t.Errorf("after redo content = %q, want %q", got, after)
			}
			assertMarks(t, "redo", b.Marks(), afterMarks)

			if _, err := b.MarkPos(user); err != nil {
				t.Errorf("user mark lost: %v", err)
			}
		})
	}
}

func assertMarks(t *testing.T, label string, got, want []piece.MarkInfo) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: %d marks, want %d", label, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: mark %d = %+v, want %+v", label, i, got[i], want[i])
		}
	}
}

func TestMoveIsOneUndoStep(t *testing.T) {
	b := newTestBuffer(t, "abcdef")
	if err := b.MoveRange(0, 2, 6); err != nil {
		t.Fatalf("MoveRange() error = %v", err)
	}
	if got := contentOf(t, b); got != "cdefab" {
		t.Fatalf("content = %q, want %q", got, "cdefab")
	}

	h := b.History()
	if h.Len() != 3 {
		t.Errorf("History().Len() = %d, want root plus 2 items", h.Len())
	}
	it, _ := h.Item(h.Current())
	if it.Op != history.OpMove || it.GroupName != "move" {
		t.Errorf("current item = %+v, want a grouped move", it)
	}

	if !b.Undo() {
		t.Fatal("Undo() = false")
	}
	if got := contentOf(t, b); got != "abcdef" {
		t.Errorf("after undo content = %q, want %q", got, "abcdef")
	}
	if h.Current() != h.Root() {
		t.Errorf("Current() = %d, want root", h.Current())
	}
}

func TestMoveOverlapping(t *testing.T) {
	b := newTestBuffer(t, "abcdef")
	err := b.MoveRange(1, 4, 2)
	if !errors.Is(err, ErrOverlappingRanges) {
		t.Errorf("MoveRange() error = %v, want ErrOverlappingRanges", err)
	}
	if got := contentOf(t, b); got != "abcdef" {
		t.Errorf("content = %q, want unchanged", got)
	}
	if b.History().Len() != 1 {
		t.Errorf("History().Len() = %d, want 1", b.History().Len())
	}
}

func TestGroup(t *testing.T) {
	b := newTestBuffer(t, "")
	b.BeginGroup("typing")
	for _, s := range []string{"a", "b", "c"} {
		if err := b.InsertString(piece.Insert, s); err != nil {
			t.Fatalf("InsertString() error = %v", err)
		}
	}
	b.EndGroup()

	if !b.Undo() {
		t.Fatal("Undo() = false")
	}
	if got := contentOf(t, b); got != "" {
		t.Errorf("content = %q, want the whole group undone", got)
	}
	if !b.Redo() {
		t.Fatal("Redo() = false")
	}
	if got := contentOf(t, b); got != "abc" {
		t.Errorf("content = %q, want %q", got, "abc")
	}
}

func TestJump(t *testing.T) {
	b := newTestBuffer(t, "")
	h := b.History()

	b.InsertAt(0, []byte("first"))
	first := h.Current()
	b.Undo()
	b.InsertAt(0, []byte("second"))
	second := h.Current()

	if !b.Jump(first) {
		t.Fatal("Jump(first) = false")
	}
	if got := contentOf(t, b); got != "first" {
		t.Errorf("content = %q, want %q", got, "first")
	}
	if !b.Jump(second) {
		t.Fatal("Jump(second) = false")
	}
	if got := contentOf(t, b); got != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}
	if b.Jump(second) {
		t.Error("Jump(current) = true")
	}
	if b.Jump(history.ItemID(99)) {
		t.Error("Jump(unknown) = true")
	}
	if kids := h.Children(h.Root()); len(kids) != 2 || kids[0] != second {
		t.Errorf("Children(root) = %v, want [%d ...]", kids, second)
	}
	if path := h.Path(second); len(path) != 2 || path[1] != second {
		t.Errorf("Path(second) = %v", path)
	}
}

func TestOffsetErrors(t *testing.T) {
	b := newTestBuffer(t, "0123456789")

	tests := []struct {
		name   string
		op     func() error
		target error
	}{
		{"insert past end", func() error { return b.InsertAt(11, []byte("x")) }, ErrOffsetOutOfRange},
		{"negative remove", func() error { return b.RemoveRange(-1, 2) }, ErrOffsetOutOfRange},
		{"inverted remove", func() error { return b.RemoveRange(5, 3) }, ErrOffsetOutOfRange},
		{"copy past end", func() error { return b.CopyRange(5, 12, 0) }, ErrOffsetOutOfRange},
		{"read past end", func() error { _, err := b.Bytes(8, 5); return err }, ErrOffsetOutOfRange},
		{"unknown mark", func() error { return b.Insert(piece.MarkID(999), []byte("x")) }, piece.ErrUnknownMark},
		{"destroy permanent", func() error { return b.DestroyMark(piece.Insert) }, piece.ErrPermanentMark},
		{"set start", func() error { return b.SetMark(piece.Start, 3) }, piece.ErrPermanentMark},
		{"bad uint size", func() error { return b.InsertUint(piece.Start, 1, 3, binary.LittleEndian) }, ErrInvalidLength},
		{"negative fill", func() error { return b.Fill(piece.Start, -1, 0) }, ErrInvalidLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
			if got := contentOf(t, b); got != "0123456789" {
				t.Errorf("content = %q, want unchanged", got)
			}
		})
	}
}

// ============================================================================
// Reads
// ============================================================================

func TestUintAndString(t *testing.T) {
	b := newTestBuffer(t, "\x01\x02\x03\x04\x05\x06\x07\x08hello")

	tests := []struct {
		from, to int64
		order    binary.ByteOrder
		want     uint64
	}{
		{0, 1, binary.BigEndian, 0x01},
		{0, 2, binary.BigEndian, 0x0102},
		{0, 2, binary.LittleEndian, 0x0201},
		{0, 4, binary.BigEndian, 0x01020304},
		{0, 8, binary.LittleEndian, 0x0807060504030201},
	}
	for _, tt := range tests {
		got, err := b.Uint(tt.from, tt.to, tt.order)
		if err != nil || got != tt.want {
			t.Errorf("Uint(%d, %d, %v) = %#x, %v; want %#x", tt.from, tt.to, tt.order, got, err, tt.want)
		}
	}
	if _, err := b.Uint(0, 3, binary.BigEndian); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("Uint of 3 bytes error = %v, want ErrInvalidLength", err)
	}

	if s, err := b.String(8, 13); err != nil || s != "hello" {
		t.Errorf("String(8, 13) = %q, %v; want %q", s, err, "hello")
	}
	if _, err := b.String(5, 2); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("String(5, 2) error = %v, want ErrInvalidLength", err)
	}
}

func TestReaderAt(t *testing.T) {
	b := newTestBuffer(t, "0123456789")
	r := b.ReaderAt()

	p := make([]byte, 4)
	if n, err := r.ReadAt(p, 3); n != 4 || err != nil || string(p) != "3456" {
		t.Errorf("ReadAt(3) = %d, %v, %q", n, err, p)
	}

	p = make([]byte, 10)
	n, err := r.ReadAt(p, 6)
	if n != 4 || err != io.EOF || string(p[:n]) != "6789" {
		t.Errorf("short ReadAt = %d, %v, %q; want 4, EOF, %q", n, err, p[:n], "6789")
	}
	if n, err := r.ReadAt(p, 10); n != 0 || err != io.EOF {
		t.Errorf("ReadAt(len) = %d, %v; want 0, EOF", n, err)
	}

	got, err := io.ReadAll(io.NewSectionReader(r, 0, b.Len()))
	if err != nil || string(got) != "0123456789" {
		t.Errorf("SectionReader = %q, %v", got, err)
	}
}

func TestScanChunksAndDigest(t *testing.T) {
	content := bytes.Repeat([]byte("bytestorm-"), 10)
	b := newTestBuffer(t, string(content))
	b.InsertAt(50, []byte("**"))
	content = append(content[:50:50], append([]byte("**"), content[50:]...)...)

	var got []byte
	var offsets []int64
	err := b.ScanChunks(context.Background(), 7, func(off int64, p []byte) error {
		offsets = append(offsets, off)
		got = append(got, p...)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanChunks() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("scanned %q, want %q", got, content)
	}
	if len(offsets) != (len(content)+6)/7 || offsets[1] != 7 {
		t.Errorf("offsets = %v", offsets)
	}

	sum, err := b.Digest(context.Background())
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	if want := xxhash.Sum64(content); sum != want {
		t.Errorf("Digest() = %#x, want %#x", sum, want)
	}
}

func TestScanChunksAborts(t *testing.T) {
	b := newTestBuffer(t, "0123456789")

	err := b.ScanChunks(context.Background(), 4, func(off int64, _ []byte) error {
		return b.InsertAt(0, []byte("x"))
	})
	if !errors.Is(err, ErrModifiedDuringScan) {
		t.Errorf("ScanChunks() error = %v, want ErrModifiedDuringScan", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Digest(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Digest() error = %v, want context.Canceled", err)
	}

	stop := errors.New("stop")
	if err := b.ScanChunks(context.Background(), 4, func(int64, []byte) error { return stop }); err != stop {
		t.Errorf("ScanChunks() error = %v, want callback error", err)
	}
}

// ============================================================================
// Events
// ============================================================================

func TestEvents(t *testing.T) {
	bus := event.NewBus()
	b := newTestBuffer(t, "hello", WithBus(bus))

	var topics []topic.Topic
	var ranges []event.ChangedRange
	bus.SubscribeFunc("**", func(_ context.Context, ev any) error {
		topics = append(topics, ev.(event.TopicProvider).EventTopic())
		if e, ok := ev.(event.Event[event.ChangedRange]); ok {
			ranges = append(ranges, e.Payload)
			// Synchronous subscribers may read the buffer.
			_ = b.Len()
		}
		return nil
	})

	b.InsertAt(5, []byte(" world"))
	b.MoveRange(0, 5, 11)
	b.Undo()

	want := []topic.Topic{
		topic.HistoryAdded, topic.BufferChanged,
		topic.HistoryAdded, topic.HistoryAdded, topic.BufferChanged,
		topic.HistoryUndone, topic.BufferChanged, topic.HistoryUndone, topic.BufferChanged,
	}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Errorf("topic[%d] = %s, want %s", i, topics[i], want[i])
		}
	}
	if ranges[0] != (event.ChangedRange{Start: 5, End: 11}) {
		t.Errorf("insert range = %+v, want {5 11}", ranges[0])
	}
	if ranges[1] != (event.ChangedRange{Start: 0, End: 16}) {
		t.Errorf("move range = %+v, want {0 16}", ranges[1])
	}
}

// ============================================================================
// Saving
// ============================================================================

func TestSaveInPlace(t *testing.T) {
	path := writeFile(t, "0123456789abcdef")
	bus := event.NewBus()
	var saved []event.Saved
	bus.Subscribe(topic.BufferSaved, event.AsHandler(func(_ context.Context, e event.Event[event.Saved]) error {
		saved = append(saved, e.Payload)
		return nil
	}))

	b, err := Open(path, WithStore(block.NewStore()), WithBus(bus))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	b.SetMark(piece.Insert, 4)
	if err := b.Overwrite(piece.Insert, []byte("XY")); err != nil {
		t.Fatalf("Overwrite() error = %v", err)
	}
	if !b.Modified() {
		t.Error("Modified() = false after edit")
	}

	p := b.Plan()
	if !p.InPlace || p.WriteBytes != 2 {
		t.Fatalf("Plan() = %+v, want in place with 2 write bytes", p)
	}
	if err := b.SaveInPlace(); err != nil {
		t.Fatalf("SaveInPlace() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "0123XY6789abcdef" {
		t.Errorf("file = %q", data)
	}
	if b.Modified() {
		t.Error("Modified() = true after save")
	}
	if b.History().Len() != 1 || b.Pieces() != 1 {
		t.Errorf("after save history len = %d, pieces = %d; want 1, 1", b.History().Len(), b.Pieces())
	}
	if got := contentOf(t, b); got != "0123XY6789abcdef" {
		t.Errorf("content = %q", got)
	}
	if pos, _ := b.MarkPos(piece.Insert); pos != 6 {
		t.Errorf("Insert mark = %d after save, want 6", pos)
	}
	if len(saved) != 1 || !saved[0].InPlace || saved[0].Written != 2 || saved[0].Path != b.Path() {
		t.Errorf("saved events = %+v", saved)
	}
}

func TestSaveRewrite(t *testing.T) {
	path := writeFile(t, "0123456789")
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := Open(path, WithStore(block.NewStore()))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	b.InsertAt(0, []byte("!"))
	b.MoveRange(1, 4, 11)
	if b.CanSaveInPlace() {
		t.Fatal("CanSaveInPlace() = true after growing the file")
	}
	if err := b.SaveInPlace(); !errors.Is(err, ErrNoInPlacePlan) {
		t.Fatalf("SaveInPlace() error = %v, want ErrNoInPlacePlan", err)
	}
	if err := b.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "!3456789012" {
		t.Errorf("file = %q, want %q", data, "!3456789012")
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}
	if b.Modified() || b.History().CanUndo() {
		t.Error("buffer not rebased after save")
	}

	// The rebased buffer keeps editing and saving in place.
	b.Replace(0, 1, []byte("?"))
	if !b.CanSaveInPlace() {
		t.Error("CanSaveInPlace() = false after rebase")
	}
}

func TestSaveAs(t *testing.T) {
	b := newTestBuffer(t, "payload")
	if !b.Modified() {
		t.Error("unsaved content not reported as Modified()")
	}
	if err := b.Save(); !errors.Is(err, ErrNoPath) {
		t.Errorf("Save() error = %v, want ErrNoPath", err)
	}
	if err := b.SaveInPlace(); !errors.Is(err, ErrNoPath) {
		t.Errorf("SaveInPlace() error = %v, want ErrNoPath", err)
	}

	path := filepath.Join(t.TempDir(), "out.bin")
	if err := b.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "payload" {
		t.Errorf("file = %q", data)
	}
	if b.Path() != path {
		t.Errorf("Path() = %q, want %q", b.Path(), path)
	}
	if b.Modified() {
		t.Error("Modified() = true after SaveAs")
	}
}

func TestFileChangedDropsPlan(t *testing.T) {
	path := writeFile(t, "0123456789")
	bus := event.NewBus()
	b, err := Open(path, WithStore(block.NewStore()), WithBus(bus))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	b.Replace(0, 1, []byte("x"))
	if !b.CanSaveInPlace() {
		t.Fatal("CanSaveInPlace() = false")
	}

	if err := os.WriteFile(path, []byte("changed on disk, longer"), 0o644); err != nil {
		t.Fatal(err)
	}
	bus.Publish(context.Background(), event.NewEvent(topic.FileChanged, event.FileChanged{Path: path}, "test"))

	if b.CanSaveInPlace() {
		t.Error("CanSaveInPlace() = true after the file changed")
	}
	if p := b.Plan(); p.Reason == "" {
		t.Errorf("Plan().Reason empty for %+v", p)
	}
}

func TestClosed(t *testing.T) {
	b := newTestBuffer(t, "abc")
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() error = %v, want ErrClosed", err)
	}
	if err := b.InsertAt(0, []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("InsertAt() error = %v, want ErrClosed", err)
	}
	if _, err := b.Bytes(0, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Bytes() error = %v, want ErrClosed", err)
	}
	if b.Undo() || b.CanSaveInPlace() {
		t.Error("closed buffer still undoes or plans")
	}
}
