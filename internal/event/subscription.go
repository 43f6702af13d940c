package event

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/bytestorm/internal/event/topic"
)

// Subscription is a registered handler.
type Subscription interface {
	ID() string
	Topic() topic.Topic
	IsActive() bool
	Pause()
	Resume()
	Cancel()
}

// SubscriptionConfig configures a subscription.
type SubscriptionConfig struct {
	Priority     Priority
	DeliveryMode DeliveryMode
	Filter       FilterFunc
	// Once cancels the subscription after its first successful delivery.
	Once bool
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithPriority sets the subscription priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Priority = p
	}
}

// WithDeliveryMode sets the delivery mode.
func WithDeliveryMode(m DeliveryMode) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.DeliveryMode = m
	}
}

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce cancels the subscription after the first event.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

const (
	stateActive int32 = iota
	statePaused
	stateCancelled
)

type subscription struct {
	id      string
	topic   topic.Topic
	handler Handler
	config  SubscriptionConfig
	state   atomic.Int32
}

func newSubscription(t topic.Topic, h Handler, opts ...SubscriptionOption) *subscription {
	config := SubscriptionConfig{Priority: PriorityNormal, DeliveryMode: DeliverySync}
	for _, opt := range opts {
		opt(&config)
	}
	return &subscription{id: uuid.NewString(), topic: t, handler: h, config: config}
}

func (s *subscription) ID() string         { return s.id }
func (s *subscription) Topic() topic.Topic { return s.topic }
func (s *subscription) IsActive() bool     { return s.state.Load() == stateActive }

func (s *subscription) Pause() {
	s.state.CompareAndSwap(stateActive, statePaused)
}

func (s *subscription) Resume() {
	s.state.CompareAndSwap(statePaused, stateActive)
}

func (s *subscription) Cancel() {
	s.state.Store(stateCancelled)
}

func (s *subscription) shouldDeliver(event any) bool {
	if !s.IsActive() {
		return false
	}
	return s.config.Filter == nil || s.config.Filter(event)
}
