package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/bytestorm/internal/engine/history"
	"github.com/dshills/bytestorm/internal/event"
	"github.com/dshills/bytestorm/internal/event/topic"
)

// enqueue queues an event for publication once the mutex is released.
// Caller must hold b.mu.
func enqueue[T any](b *Buffer, t topic.Topic, payload T) {
	if b.bus == nil {
		return
	}
	b.pending = append(b.pending, event.NewEvent(t, payload, b.id.String()))
}

// unlock releases b.mu and publishes the events queued while it was held.
func (b *Buffer) unlock() {
	events := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, ev := range events {
		if err := b.bus.Publish(context.Background(), ev); err != nil {
			b.logger.Debug("publish failed", zap.Error(err))
		}
	}
}

// onHistory turns history steps into events. It runs under b.mu.
func (b *Buffer) onHistory(c history.Change) {
	payload := event.HistoryChanged{Old: int(c.Old), New: int(c.New)}
	switch c.Kind {
	case history.Added:
		enqueue(b, topic.HistoryAdded, payload)
		return
	case history.Undone:
		enqueue(b, topic.HistoryUndone, payload)
	case history.Redone:
		enqueue(b, topic.HistoryRedone, payload)
	case history.Jumped:
		enqueue(b, topic.HistoryJumped, payload)
	}
	start, end := c.Splice.Changed()
	enqueue(b, topic.BufferChanged, event.ChangedRange{Start: start, End: end})
}

// watchFile drops the cached plan when the backing file changes on disk.
func (b *Buffer) watchFile() {
	if b.bus == nil || b.sub != nil {
		return
	}
	sub, err := b.bus.Subscribe(topic.FileChanged, event.AsHandler(func(_ context.Context, e event.Event[event.FileChanged]) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.closed && e.Payload.Path == b.path {
			b.plan = nil
			b.logger.Debug("backing file changed", zap.String("path", b.path), zap.Bool("removed", e.Payload.Removed))
		}
		return nil
	}))
	if err != nil {
		b.logger.Warn("subscribing to file changes", zap.Error(err))
		return
	}
	b.sub = sub
}
