package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/engine/save"
	"github.com/dshills/bytestorm/internal/event"
)

// Option configures a Buffer during creation.
type Option func(*Buffer)

// WithContent sets the initial content of a new buffer. It is ignored by
// Open.
func WithContent(content []byte) Option {
	return func(b *Buffer) {
		b.initContent = content
	}
}

// WithStore sets the block store. Buffers sharing a store share file
// blocks and memory pages. Defaults to block.Shared().
func WithStore(s *block.Store) Option {
	return func(b *Buffer) {
		if s != nil {
			b.store = s
		}
	}
}

// WithBus sets the event bus the buffer publishes to.
func WithBus(bus *event.Bus) Option {
	return func(b *Buffer) {
		b.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithSaveOptions sets options passed to every save.
func WithSaveOptions(opts ...save.Option) Option {
	return func(b *Buffer) {
		b.saveOpts = append(b.saveOpts, opts...)
	}
}

// WithClock sets the time source for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		if now != nil {
			b.now = now
		}
	}
}
