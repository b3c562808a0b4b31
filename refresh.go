package cacheproxy

import "sync"

// subscriberBacklog bounds the per-subscriber backlog, per spec.md §4.2
// ("suggested capacity 16").
const subscriberBacklog = 16

// RefreshMessageKind distinguishes a full flush from a pattern-scoped one.
type RefreshMessageKind int

const (
	// RefreshAll clears the entire cache.
	RefreshAll RefreshMessageKind = iota
	// RefreshPattern clears entries matching Pattern.
	RefreshPattern
)

// RefreshMessage is the sum type produced by a RefreshTrigger and consumed
// by the Invalidation Listener: either "flush everything" or "flush
// everything matching this pattern", per spec.md §3.
type RefreshMessage struct {
	Kind    RefreshMessageKind
	Pattern string
}

// refreshSubscription is one subscriber's view of the broadcast. Each
// Invalidation Listener holds one; a channel shared through
// WithRefreshChannel has one subscription per proxy built on it.
type refreshSubscription struct {
	messages chan RefreshMessage
	// lagged receives a best-effort notification whenever a send to
	// messages would have blocked and was dropped instead. It never blocks
	// the publisher: a pending notification is enough, so it's buffered to
	// depth 1 and further drops while one is pending are silent.
	lagged chan struct{}
}

// RefreshChannel is the multi-producer, multi-subscriber broadcast of
// spec.md §4.2. Publishing never blocks: a full subscriber backlog drops
// the message and raises that subscriber's lag indicator instead.
type RefreshChannel struct {
	mu   sync.Mutex
	subs map[*refreshSubscription]struct{}
}

// NewRefreshChannel constructs an empty broadcast channel with no subscribers.
func NewRefreshChannel() *RefreshChannel {
	return &RefreshChannel{subs: make(map[*refreshSubscription]struct{})}
}

func (c *RefreshChannel) subscribe() *refreshSubscription {
	s := &refreshSubscription{
		messages: make(chan RefreshMessage, subscriberBacklog),
		lagged:   make(chan struct{}, 1),
	}
	c.mu.Lock()
	c.subs[s] = struct{}{}
	c.mu.Unlock()
	return s
}

func (c *RefreshChannel) unsubscribe(s *refreshSubscription) {
	c.mu.Lock()
	delete(c.subs, s)
	c.mu.Unlock()
}

// publish fans msg out to every subscriber registered at the moment of the
// call. Subscribers registered afterward never see it. Holding the lock for
// the whole fan-out also gives the single-listener case the send-order
// guarantee spec.md §5 requires: two concurrent publish calls can't
// interleave their delivery to the same subscriber.
func (c *RefreshChannel) publish(msg RefreshMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.subs {
		select {
		case s.messages <- msg:
		default:
			select {
			case s.lagged <- struct{}{}:
			default:
			}
		}
	}
}

// RefreshTrigger is the external-facing handle for invalidating a proxy's
// cache. It's a thin, copyable wrapper around a shared *RefreshChannel, so
// every copy publishes to the same set of subscribers — spec.md §6 requires
// it be "cloneable".
type RefreshTrigger struct {
	channel *RefreshChannel
}

// NewRefreshTrigger wraps an existing RefreshChannel. Most callers get a
// RefreshTrigger from New instead of constructing one directly; this
// constructor exists so several proxy handlers can share one invalidation
// channel (spec.md SPEC_FULL §4, "a library-usage convenience constructor").
func NewRefreshTrigger(ch *RefreshChannel) RefreshTrigger {
	return RefreshTrigger{channel: ch}
}

// Trigger requests a full cache flush. Non-blocking and infallible.
func (t RefreshTrigger) Trigger() {
	t.channel.publish(RefreshMessage{Kind: RefreshAll})
}

// TriggerByPattern requests a pattern-scoped cache flush. Non-blocking and
// infallible.
func (t RefreshTrigger) TriggerByPattern(pattern string) {
	t.channel.publish(RefreshMessage{Kind: RefreshPattern, Pattern: pattern})
}
