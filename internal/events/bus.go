package events

import (
	"sync"
)

// Buffer sizing.
const (
	// ReplayDepth is how many recent events a new subscriber receives
	// on subscription.
	ReplayDepth = 16

	// DefaultBufferSize is the per-subscriber channel capacity used
	// when Subscribe is called with a non-positive buffer.
	DefaultBufferSize = 64
)

// Logger is the narrow logging interface the bus needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Subscription is a registered event consumer. Events arrive on C.
type Subscription struct {
	// C delivers events. It is closed by Unsubscribe and by Close.
	C <-chan Event

	ch  chan Event
	bus *Bus
}

// Unsubscribe removes the subscription and closes its channel.
// Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s)
}

// Bus is an in-process publish/subscribe hub for Events.
//
// Publish never blocks: each subscriber has a bounded channel, and
// when a subscriber falls behind its oldest pending event is dropped
// to make room for the newest. A short replay buffer gives new
// subscribers the recent past so late joiners (the websocket layer,
// the automation engine at startup) see current context.
type Bus struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	backlog []Event // Most recent ReplayDepth events, oldest first
	closed  bool
	logger  Logger

	dropped uint64
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used to report dropped events.
func (b *Bus) SetLogger(logger Logger) {
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

// Publish delivers an event to all subscribers without blocking.
// Events published after Close are discarded.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.backlog = append(b.backlog, e)
	if len(b.backlog) > ReplayDepth {
		b.backlog = b.backlog[len(b.backlog)-ReplayDepth:]
	}

	for sub := range b.subs {
		b.send(sub, e)
	}
}

// send pushes an event onto a subscriber channel, evicting the oldest
// pending event if the channel is full. Caller holds b.mu.
func (b *Bus) send(sub *Subscription, e Event) {
	select {
	case sub.ch <- e:
		return
	default:
	}

	// Slow subscriber: drop its oldest pending event and retry once.
	select {
	case <-sub.ch:
		b.dropped++
		b.logger.Warn("event dropped for slow subscriber", "type", e.Type(), "total_dropped", b.dropped)
	default:
	}

	select {
	case sub.ch <- e:
	default:
	}
}

// Subscribe registers a consumer. The returned subscription's channel
// is pre-loaded with the replay buffer (up to ReplayDepth recent
// events). A non-positive buffer selects DefaultBufferSize; the
// effective capacity is never below ReplayDepth so replay cannot
// itself cause drops.
func (b *Bus) Subscribe(buffer int) *Subscription {
	return b.subscribe(buffer, true)
}

// SubscribeLive registers a consumer without the replay backlog. Only
// events published after registration are delivered. Consumers that
// act on events, rather than display them, subscribe live so the
// recent past is not re-processed.
func (b *Bus) SubscribeLive(buffer int) *Subscription {
	return b.subscribe(buffer, false)
}

func (b *Bus) subscribe(buffer int, replay bool) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	if buffer < ReplayDepth {
		buffer = ReplayDepth
	}

	sub := &Subscription{
		ch:  make(chan Event, buffer),
		bus: b,
	}
	sub.C = sub.ch

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub
	}

	if replay {
		for _, e := range b.backlog {
			sub.ch <- e
		}
	}
	b.subs[sub] = struct{}{}

	return sub
}

// unsubscribe removes a subscription and closes its channel.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns the total number of events discarded because
// subscribers fell behind.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close shuts the bus down: all subscriber channels are closed and
// further publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = make(map[*Subscription]struct{})
	b.backlog = nil
}
