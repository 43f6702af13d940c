package event

import "go.uber.org/zap"

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	asyncQueueSize int
	panicHandler   PanicHandler
	logger         *zap.Logger
}

func defaultBusConfig() busConfig {
	return busConfig{
		asyncQueueSize: 1024,
		logger:         zap.NewNop(),
	}
}

// WithAsyncQueueSize sets the async queue size.
func WithAsyncQueueSize(size int) BusOption {
	return func(c *busConfig) {
		if size > 0 {
			c.asyncQueueSize = size
		}
	}
}

// WithBusPanicHandler sets the handler called when a subscriber panics.
func WithBusPanicHandler(h PanicHandler) BusOption {
	return func(c *busConfig) {
		c.panicHandler = h
	}
}

// WithLogger sets the logger used for handler errors and panics.
func WithLogger(l *zap.Logger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
