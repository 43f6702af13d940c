package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/engine/history"
	"github.com/dshills/bytestorm/internal/engine/piece"
	"github.com/dshills/bytestorm/internal/engine/save"
	"github.com/dshills/bytestorm/internal/event"
)

// DefaultScanChunk is the chunk size ScanChunks uses when given zero.
const DefaultScanChunk = 64 * 1024

// Buffer is an editable view of a file or of in-memory content.
type Buffer struct {
	mu sync.Mutex

	id    uuid.UUID
	path  string
	store *block.Store
	table *piece.Table
	tree  *history.Tree

	// file is the block the buffer was opened from or last saved to.
	file *block.FileBlock

	// clean is the history item that matches the file on disk.
	clean history.ItemID

	plan    *save.Plan
	planGen uint64

	bus      *event.Bus
	sub      event.Subscription
	pending  []any
	logger   *zap.Logger
	saveOpts []save.Option
	now      func() time.Time

	initContent []byte
	closed      bool
}

func newBuffer(opts []Option) *Buffer {
	b := &Buffer{
		id:     uuid.New(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = block.Shared()
	}
	b.table = piece.NewTable(b.store)
	b.tree = history.NewTree(b.table, history.WithClock(b.now), history.WithListener(b.onHistory))
	b.logger = b.logger.With(zap.String("buffer", b.id.String()))
	return b
}

// New creates a buffer without a backing file.
func New(opts ...Option) *Buffer {
	b := newBuffer(opts)
	if len(b.initContent) > 0 {
		b.table.Reset(b.store.Append(b.initContent)...)
	}
	b.initContent = nil
	return b
}

// Open creates a buffer over the file at path. The file is read lazily.
func Open(path string, opts ...Option) (*Buffer, error) {
	b := newBuffer(opts)
	b.initContent = nil

	fb, err := b.store.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	b.file = fb
	b.path = fb.Path()
	b.table.Reset(block.Span{Block: fb, Start: 0, End: fb.Len()})
	b.watchFile()

	b.logger.Debug("opened", zap.String("path", b.path), zap.Int64("size", fb.Len()))
	return b, nil
}

// Close releases the backing file. Every later call fails with ErrClosed
// or returns a zero value.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.closed = true
	if b.sub != nil && b.bus != nil {
		_ = b.bus.Unsubscribe(b.sub)
	}
	err := b.store.Release(b.file)
	b.file = nil
	return err
}

// ID returns the buffer's unique id.
func (b *Buffer) ID() uuid.UUID {
	return b.id
}

// Path returns the absolute path of the backing file, or "" for buffers
// created with New that were never saved.
func (b *Buffer) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Len returns the content length in bytes.
func (b *Buffer) Len() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.Len()
}

// Pieces returns the number of live pieces.
func (b *Buffer) Pieces() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.Pieces()
}

// GetBytes copies len(p) bytes starting at off into p.
func (b *Buffer) GetBytes(off int64, p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	return b.table.Read(off, p)
}

// Bytes returns a copy of n bytes starting at off.
func (b *Buffer) Bytes(off, n int64) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrInvalidLength, n)
	}
	p := make([]byte, n)
	if _, err := b.GetBytes(off, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReaderAt returns an io.ReaderAt over the buffer. Each call locks the
// buffer, so reads see a consistent state per call only.
func (b *Buffer) ReaderAt() io.ReaderAt {
	return readerAt{b}
}

type readerAt struct {
	b *Buffer
}

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	b := r.b
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	size := b.table.Len()
	if off < 0 {
		return 0, fmt.Errorf("%w: %d", ErrOffsetOutOfRange, off)
	}
	if off >= size {
		return 0, io.EOF
	}
	n := int(min(int64(len(p)), size-off))
	got, err := b.table.Read(off, p[:n])
	if err != nil {
		return got, err
	}
	if got < len(p) {
		return got, io.EOF
	}
	return got, nil
}

// ScanChunks calls fn with consecutive chunks of the content. The buffer is
// locked while each chunk is read, not while fn runs; a mutation between
// chunks aborts the scan with ErrModifiedDuringScan. ctx is checked
// between chunks.
func (b *Buffer) ScanChunks(ctx context.Context, chunk int, fn func(off int64, p []byte) error) error {
	if chunk <= 0 {
		chunk = DefaultScanChunk
	}
	buf := make([]byte, chunk)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	gen := b.table.Generation()
	b.mu.Unlock()

	for off := int64(0); ; {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return ErrClosed
		}
		if b.table.Generation() != gen {
			b.mu.Unlock()
			return ErrModifiedDuringScan
		}
		size := b.table.Len()
		if off >= size {
			b.mu.Unlock()
			return nil
		}
		n := int(min(int64(chunk), size-off))
		_, err := b.table.Read(off, buf[:n])
		b.mu.Unlock()
		if err != nil {
			return err
		}

		if err := fn(off, buf[:n]); err != nil {
			return err
		}
		off += int64(n)
	}
}

// Digest returns the xxhash64 of the content.
func (b *Buffer) Digest(ctx context.Context) (uint64, error) {
	h := xxhash.New()
	err := b.ScanChunks(ctx, 0, func(_ int64, p []byte) error {
		_, err := h.Write(p)
		return err
	})
	if err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// Uint interprets the bytes in [a, b) as an unsigned integer. The range
// must be 1, 2, 4 or 8 bytes long.
func (b *Buffer) Uint(from, to int64, order binary.ByteOrder) (uint64, error) {
	n := to - from
	switch n {
	case 1, 2, 4, 8:
	default:
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidLength, n)
	}
	p, err := b.Bytes(from, n)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return uint64(p[0]), nil
	case 2:
		return uint64(order.Uint16(p)), nil
	case 4:
		return uint64(order.Uint32(p)), nil
	default:
		return order.Uint64(p), nil
	}
}

// String returns the bytes in [from, to) as a string.
func (b *Buffer) String(from, to int64) (string, error) {
	if to < from {
		return "", fmt.Errorf("%w: [%d,%d)", ErrInvalidLength, from, to)
	}
	p, err := b.Bytes(from, to-from)
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// Verify checks the internal invariants of the piece and mark chains.
func (b *Buffer) Verify() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.Verify()
}
