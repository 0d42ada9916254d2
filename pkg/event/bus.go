package event

import "github.com/cskr/pubsub/v2"

// Publisher is the outbound side of the event bus. The orchestration
// core publishes through this interface; delivery is fire-and-forget.
type Publisher interface {
	// Publish publishes an event of the given type to the event stream.
	Publish(t Type, data any)
}

// Subscription is a handle to an active event subscription.
type Subscription struct {
	// C delivers events for the subscribed types.
	C chan any

	active bool
	unsub  func()
}

// Unsubscribe cancels the subscription and drains its channel.
// Safe to call on an inactive subscription.
func (s *Subscription) Unsubscribe() {
	if !s.active {
		return
	}
	s.active = false
	s.unsub()
}

// Bus is the default event bus, backed by a typed pubsub stream.
type Bus struct {
	ps *pubsub.PubSub[Type, any]
}

// NewBus returns an event bus whose subscriber channels buffer up to
// capacity events each.
func NewBus(capacity int) *Bus {
	return &Bus{ps: pubsub.New[Type, any](capacity)}
}

// Publish publishes an event without blocking. Events for subscribers
// with full channels are dropped.
func (b *Bus) Publish(t Type, data any) {
	b.ps.TryPub(data, t)
}

// Subscribe subscribes to one or more event types.
func (b *Bus) Subscribe(types ...Type) Subscription {
	ch := b.ps.Sub(types...)
	return Subscription{
		C:      ch,
		active: true,
		unsub: func() {
			go b.ps.Unsub(ch, types...)
		},
	}
}

// Shutdown closes the bus and all subscriber channels.
func (b *Bus) Shutdown() {
	b.ps.Shutdown()
}

// NopPublisher discards all events. Use when no consumer is attached.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(Type, any) {}

// Compile-time interface satisfaction checks.
var (
	_ Publisher = (*Bus)(nil)
	_ Publisher = NopPublisher{}
)
