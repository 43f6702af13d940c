package event

import "errors"

// Sentinel errors for the event bus.
var (
	// ErrBusNotRunning is returned by Stop on a bus that was not started.
	ErrBusNotRunning = errors.New("event bus is not running")

	// ErrBusAlreadyRunning is returned when Start is called on a running bus.
	ErrBusAlreadyRunning = errors.New("event bus is already running")

	// ErrQueueFull is returned when the async queue cannot accept an event.
	ErrQueueFull = errors.New("event queue is full")

	// ErrInvalidEvent is returned for events without a topic.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidTopic is returned when a topic is empty or malformed.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrSubscriptionNotFound is returned when unsubscribing an unknown subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// PanicError wraps a recovered handler panic.
type PanicError struct {
	Topic string
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "handler panic on topic " + e.Topic
}
