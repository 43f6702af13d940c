package save

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/engine/piece"
)

// DefaultChunkSize bounds the bytes copied per read/write step.
const DefaultChunkSize = 64 * 1024

// Option configures plan execution.
type Option func(*options)

type options struct {
	chunkSize int
	tempDir   string
	perm      fs.FileMode
}

func defaultOptions() options {
	return options{chunkSize: DefaultChunkSize, perm: 0o644}
}

// WithChunkSize sets the copy chunk size.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithTempDir places the temporary file of a full rewrite in dir instead
// of next to the target. dir must be on the same file system.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

// WithPerm sets the mode of newly created files. Existing files keep
// their mode.
func WithPerm(perm fs.FileMode) Option {
	return func(o *options) {
		o.perm = perm
	}
}

// WriteInPlace executes an in-place plan against the original file and
// returns the number of bytes written. Instructions are written in
// ascending offset order and each piece is copied front to back, so every
// read happens at or after the end of all earlier writes.
func WriteInPlace(p *Plan, original *block.FileBlock, opts ...Option) (int64, error) {
	if !p.InPlace {
		return 0, ErrNotInPlace
	}
	if changed, err := original.Changed(); err != nil {
		return 0, err
	} else if changed {
		return 0, fmt.Errorf("%w: %s", ErrFileChanged, original.Path())
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.OpenFile(original.Path(), os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer original.Invalidate()

	buf := make([]byte, o.chunkSize)
	var written int64
	for _, ins := range p.Instructions {
		if !ins.Write {
			continue
		}
		n, err := copyPiece(f, ins.Offset, ins.Piece, buf)
		written += n
		if err != nil {
			_ = f.Close()
			return written, fmt.Errorf("write %s at %d: %w", original.Path(), ins.Offset, err)
		}
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return written, err
	}
	return written, f.Close()
}

func copyPiece(f *os.File, at int64, info piece.Info, buf []byte) (int64, error) {
	var done int64
	for done < info.Len() {
		n := min(int64(len(buf)), info.Len()-done)
		if _, err := info.ReadAt(buf[:n], done); err != nil {
			return done, err
		}
		if _, err := f.WriteAt(buf[:n], at+done); err != nil {
			return done, err
		}
		done += n
	}
	return done, nil
}

// WriteFile streams src into path through a temporary file and renames it
// into place once the data is synced. On failure path is left untouched.
func WriteFile(path string, src Source, opts ...Option) (int64, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	perm := o.perm
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}

	dir := o.tempDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := writeAll(f, src, o.chunkSize)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tempPath, perm)
	}
	if err == nil {
		err = os.Rename(tempPath, path)
	}
	if err != nil {
		// Clean up temp file on failure
		_ = os.Remove(tempPath)
		return 0, fmt.Errorf("save %s: %w", path, err)
	}
	return written, nil
}

func writeAll(f *os.File, src Source, chunkSize int) (int64, error) {
	w := bufio.NewWriterSize(f, chunkSize)
	buf := make([]byte, chunkSize)

	var written int64
	var err error
	src.Walk(func(info piece.Info) bool {
		for k := int64(0); k < info.Len(); {
			n := min(int64(len(buf)), info.Len()-k)
			if _, err = info.ReadAt(buf[:n], k); err != nil {
				return false
			}
			if _, err = w.Write(buf[:n]); err != nil {
				return false
			}
			k += n
			written += n
		}
		return true
	})
	if err != nil {
		return written, err
	}
	return written, w.Flush()
}
