package event

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/bytestorm/internal/event/topic"
)

// Bus routes events to subscriptions by topic pattern.
type Bus struct {
	config busConfig

	mu      sync.RWMutex
	subs    map[topic.Topic][]*subscription
	matcher *topic.Matcher

	queue   chan asyncTask
	running atomic.Bool
	wg      sync.WaitGroup
	qmu     sync.Mutex

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	errors    atomic.Uint64
	panics    atomic.Uint64
}

type asyncTask struct {
	ctx   context.Context
	event any
	sub   *subscription
}

// NewBus creates a bus. Synchronous delivery works immediately; async
// subscriptions receive events only after Start.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Bus{
		config:  config,
		subs:    make(map[topic.Topic][]*subscription),
		matcher: topic.NewMatcher(),
	}
}

// Start starts the async worker.
func (b *Bus) Start() error {
	b.qmu.Lock()
	defer b.qmu.Unlock()

	if b.running.Load() {
		return ErrBusAlreadyRunning
	}
	b.queue = make(chan asyncTask, b.config.asyncQueueSize)
	b.running.Store(true)

	b.wg.Add(1)
	go b.worker(b.queue)
	return nil
}

// Stop drains the async queue and stops the worker, or gives up when ctx
// is done.
func (b *Bus) Stop(ctx context.Context) error {
	b.qmu.Lock()
	if !b.running.Swap(false) {
		b.qmu.Unlock()
		return ErrBusNotRunning
	}
	close(b.queue)
	b.qmu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns true between Start and Stop.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

func (b *Bus) worker(queue <-chan asyncTask) {
	defer b.wg.Done()
	for task := range queue {
		b.deliver(task.ctx, task.event, task.sub)
	}
}

// Publish delivers event to every matching synchronous subscription and
// queues it for matching async subscriptions.
func (b *Bus) Publish(ctx context.Context, event any) error {
	tp, ok := event.(TopicProvider)
	if !ok || tp.EventTopic() == "" {
		return ErrInvalidEvent
	}
	b.published.Add(1)

	for _, sub := range b.match(tp.EventTopic()) {
		if !sub.shouldDeliver(event) {
			continue
		}
		if sub.config.DeliveryMode == DeliveryAsync {
			b.enqueue(ctx, event, sub)
			continue
		}
		b.deliver(ctx, event, sub)
	}
	return nil
}

func (b *Bus) enqueue(ctx context.Context, event any, sub *subscription) {
	b.qmu.Lock()
	defer b.qmu.Unlock()

	if !b.running.Load() {
		b.dropped.Add(1)
		return
	}
	select {
	case b.queue <- asyncTask{ctx: ctx, event: event, sub: sub}:
	default:
		b.dropped.Add(1)
		b.config.logger.Debug("event dropped", zap.Error(ErrQueueFull), zap.String("topic", string(sub.topic)))
	}
}

// match returns the subscriptions for every pattern matching t, ordered by
// priority.
func (b *Bus) match(t topic.Topic) []*subscription {
	b.mu.RLock()
	var out []*subscription
	for _, pattern := range b.matcher.Match(t) {
		out = append(out, b.subs[pattern]...)
	}
	b.mu.RUnlock()

	slices.SortStableFunc(out, func(a, c *subscription) int {
		return int(a.config.Priority) - int(c.config.Priority)
	})
	return out
}

func (b *Bus) deliver(ctx context.Context, event any, sub *subscription) {
	if err := b.call(ctx, event, sub); err != nil {
		b.errors.Add(1)
		b.config.logger.Debug("event handler failed",
			zap.String("topic", string(sub.topic)),
			zap.Error(err))
		return
	}
	b.delivered.Add(1)
	if sub.config.Once {
		_ = b.Unsubscribe(sub)
	}
}

func (b *Bus) call(ctx context.Context, event any, sub *subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			if b.config.panicHandler != nil {
				b.config.panicHandler(event, r)
			}
			err = &PanicError{Topic: string(sub.topic), Value: r}
		}
	}()
	return sub.handler.Handle(ctx, event)
}

// Subscribe registers handler for events whose topic matches pattern.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}

	sub := newSubscription(pattern, handler, opts...)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[pattern] = append(b.subs[pattern], sub)
	b.matcher.Add(pattern)
	return sub, nil
}

// SubscribeFunc subscribes a function handler.
func (b *Bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe cancels and removes a subscription.
func (b *Bus) Unsubscribe(s Subscription) error {
	sub, ok := s.(*subscription)
	if !ok || sub == nil {
		return ErrSubscriptionNotFound
	}
	sub.Cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.topic]
	i := slices.Index(list, sub)
	if i < 0 {
		return ErrSubscriptionNotFound
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(b.subs, sub.topic)
		b.matcher.Remove(sub.topic)
	} else {
		b.subs[sub.topic] = list
	}
	return nil
}

// Stats returns current counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := 0
	for _, list := range b.subs {
		for _, s := range list {
			if s.IsActive() {
				active++
			}
		}
	}
	b.mu.RUnlock()

	depth := 0
	b.qmu.Lock()
	if b.queue != nil && b.running.Load() {
		depth = len(b.queue)
	}
	b.qmu.Unlock()

	return Stats{
		EventsPublished:   b.published.Load(),
		EventsDelivered:   b.delivered.Load(),
		EventsDropped:     b.dropped.Load(),
		HandlerErrors:     b.errors.Load(),
		HandlerPanics:     b.panics.Load(),
		ActiveSubscribers: active,
		QueueDepth:        depth,
	}
}
