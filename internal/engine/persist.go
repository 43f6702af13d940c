package engine

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/engine/history"
	"github.com/dshills/bytestorm/internal/engine/save"
	"github.com/dshills/bytestorm/internal/event"
	"github.com/dshills/bytestorm/internal/event/topic"
)

// Plan returns the save plan for the current content. The plan is cached
// until the next mutation and must not be modified.
func (b *Buffer) Plan() *save.Plan {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.planLocked()
}

func (b *Buffer) planLocked() *save.Plan {
	gen := b.table.Generation()
	if b.plan != nil && b.planGen == gen {
		return b.plan
	}
	p := save.Build(b.table, b.file)
	if !p.InPlace {
		b.logger.Debug("full rewrite required", zap.String("reason", p.Reason))
	}
	b.plan, b.planGen = p, gen
	return p
}

// CanSaveInPlace reports whether the content can be written back into the
// backing file without a full rewrite.
func (b *Buffer) CanSaveInPlace() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	return b.planLocked().InPlace
}

// Modified reports whether the content differs from the backing file as of
// the last open or save.
func (b *Buffer) Modified() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		return b.table.Len() > 0 || b.tree.Current() != b.clean
	}
	return b.tree.Current() != b.clean
}

// SaveInPlace writes the changed pieces back into the backing file. It
// fails with ErrNoInPlacePlan when the plan requires a full rewrite.
func (b *Buffer) SaveInPlace() error {
	b.mu.Lock()
	defer b.unlock()

	if b.closed {
		return ErrClosed
	}
	if b.file == nil {
		return ErrNoPath
	}
	p := b.planLocked()
	if !p.InPlace {
		return fmt.Errorf("%w: %s", ErrNoInPlacePlan, p.Reason)
	}
	return b.saveInPlace(p)
}

// Save writes the content to the backing file, in place when the plan
// allows it and through an atomic rewrite otherwise.
func (b *Buffer) Save() error {
	b.mu.Lock()
	defer b.unlock()

	if b.closed {
		return ErrClosed
	}
	if b.path == "" {
		return ErrNoPath
	}
	if p := b.planLocked(); p.InPlace {
		return b.saveInPlace(p)
	}
	return b.rewrite(b.path)
}

// SaveAs writes the content to path through an atomic rewrite and makes
// path the backing file.
func (b *Buffer) SaveAs(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.unlock()

	if b.closed {
		return ErrClosed
	}
	return b.rewrite(abs)
}

func (b *Buffer) saveInPlace(p *save.Plan) error {
	n, err := save.WriteInPlace(p, b.file, b.saveOpts...)
	if err != nil {
		b.plan = nil
		return fmt.Errorf("saving %s in place: %w", b.path, err)
	}
	b.logger.Info("saved in place",
		zap.String("path", b.path),
		zap.Int64("written", n),
		zap.Int("writes", p.Writes))
	return b.saved(b.path, true, n)
}

func (b *Buffer) rewrite(path string) error {
	n, err := save.WriteFile(path, b.table, b.saveOpts...)
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	b.logger.Info("saved", zap.String("path", path), zap.Int64("written", n))
	return b.saved(path, false, n)
}

// saved rebases the buffer on the file just written: the content becomes
// one piece over a fresh file block and the history starts over.
func (b *Buffer) saved(path string, inPlace bool, written int64) error {
	b.store.Forget(path)
	fb, err := b.store.OpenFile(path)
	if err != nil {
		b.plan = nil
		return fmt.Errorf("reopening %s: %w", path, err)
	}

	old := b.file
	b.file = fb
	b.path = fb.Path()
	b.table.Reset(block.Span{Block: fb, Start: 0, End: fb.Len()})
	b.tree.Reset()
	b.clean = history.RootID
	b.plan = nil
	if err := b.store.Release(old); err != nil {
		b.logger.Debug("releasing previous file block", zap.Error(err))
	}
	b.watchFile()

	enqueue(b, topic.BufferSaved, event.Saved{Path: b.path, InPlace: inPlace, Written: written})
	return nil
}
