package block

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultWindowSize is the size of the cached window of a file block.
const DefaultWindowSize = 4 * 1024

// FileBlock is a read-only block over an open file.
// It caches the most recently requested window and refills on a miss.
// A FileBlock is safe for concurrent readers.
type FileBlock struct {
	mu sync.Mutex

	id   ID
	path string
	file *os.File

	// Stat snapshot taken at open, used to detect external modification.
	size    int64
	modTime time.Time

	// Cached window
	window []byte
	winOff int64
	winLen int

	refs   int
	closed bool

	// Counters for diagnostics
	refills uint64
}

// openFileBlock opens path and records its size and modification time.
func openFileBlock(path string, windowSize int) (*FileBlock, error) {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory", path)
	}

	return &FileBlock{
		id:      nextID(),
		path:    path,
		file:    f,
		size:    info.Size(),
		modTime: info.ModTime(),
		window:  make([]byte, windowSize),
		refs:    1,
	}, nil
}

// ID returns the block identity.
func (b *FileBlock) ID() ID { return b.id }

// Kind returns KindFile.
func (b *FileBlock) Kind() Kind { return KindFile }

// Len returns the file size recorded at open.
func (b *FileBlock) Len() int64 { return b.size }

// Path returns the absolute path of the file.
func (b *FileBlock) Path() string { return b.path }

// Refs returns the number of holders sharing this block.
func (b *FileBlock) Refs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs
}

// Refills returns how many times the window was reloaded.
func (b *FileBlock) Refills() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refills
}

// ReadAt copies len(p) bytes at off. Requests inside the cached window are
// served from memory; a miss refills the window starting at the aligned
// offset. Requests larger than the window read the file directly.
func (b *FileBlock) ReadAt(p []byte, off int64) (int, error) {
	checkRange(KindFile, b.id, b.size, off, len(p))
	if len(p) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	if len(p) > len(b.window) {
		n, err := b.file.ReadAt(p, off)
		if err != nil && !(errors.Is(err, io.EOF) && n == len(p)) {
			return n, fmt.Errorf("read %s at %d: %w", b.path, off, err)
		}
		return n, nil
	}

	if off < b.winOff || off+int64(len(p)) > b.winOff+int64(b.winLen) {
		if err := b.refillLocked(off); err != nil {
			return 0, err
		}
		if off+int64(len(p)) > b.winOff+int64(b.winLen) {
			// Window starting at the aligned offset does not cover the
			// request; reload it starting exactly at off.
			if err := b.loadLocked(off); err != nil {
				return 0, err
			}
		}
	}

	n := copy(p, b.window[off-b.winOff:b.winLen])
	if n < len(p) {
		return n, fmt.Errorf("read %s at %d: %w", b.path, off, io.ErrUnexpectedEOF)
	}
	return n, nil
}

// refillLocked loads the window containing off, aligned to the window size.
func (b *FileBlock) refillLocked(off int64) error {
	return b.loadLocked(off - off%int64(len(b.window)))
}

func (b *FileBlock) loadLocked(start int64) error {
	n, err := b.file.ReadAt(b.window, start)
	if err != nil && !errors.Is(err, io.EOF) {
		b.winLen = 0
		return fmt.Errorf("read %s at %d: %w", b.path, start, err)
	}
	b.winOff = start
	b.winLen = n
	b.refills++
	return nil
}

// WriteAt always fails: file blocks are read-only.
func (b *FileBlock) WriteAt(p []byte, off int64) (int, error) {
	return 0, ErrUnsupportedOperation
}

// Invalidate drops the cached window so the next read goes to disk.
func (b *FileBlock) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.winLen = 0
	b.winOff = 0
}

// Changed reports whether the file on disk no longer matches the size and
// modification time recorded when the block was opened.
func (b *FileBlock) Changed() (bool, error) {
	info, err := os.Stat(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return info.Size() != b.size || !info.ModTime().Equal(b.modTime), nil
}

// close releases the file handle.
func (b *FileBlock) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.winLen = 0
	return b.file.Close()
}
