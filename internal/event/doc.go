// Package event provides the publish/subscribe bus that carries buffer
// notifications to collaborators.
//
// # Events
//
// Events are typed envelopes with a topic and a payload:
//
//	e := event.NewEvent(topic.BufferChanged, event.ChangedRange{Start: 0, End: 4}, "engine")
//	bus.Publish(ctx, e)
//
// # Delivery
//
// Subscriptions are synchronous by default: handlers run in the publisher's
// goroutine before Publish returns, in priority order. A subscription
// created with WithDeliveryMode(DeliveryAsync) is queued to the bus worker
// instead, which only runs between Start and Stop.
//
// # Subscribing
//
//	sub, _ := bus.SubscribeFunc("history.*", func(ctx context.Context, ev any) error {
//	    e := ev.(event.Event[event.HistoryChanged])
//	    ...
//	})
//	defer bus.Unsubscribe(sub)
//
// Handler panics are recovered and reported to the bus panic handler.
package event
