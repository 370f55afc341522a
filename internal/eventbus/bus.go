// Package eventbus implements the Event Bus: an unbounded, in-memory,
// single-writer fan-out channel broadcasting every observable Agent Loop
// state change to any number of subscribers, with per-subscriber exception
// isolation.
//
// Grounded on the teacher's internal/event/bus.go, whose own delivery path
// is the same direct callback-list fan-out this package uses (the teacher's
// copy also constructs a watermill gochannel and never calls Publish/
// Subscribe on it — see that file's own "Direct subscriber tracking —
// preserves type information" comment). spec.md §5 requires synchronous,
// strictly-ordered delivery with no parallelism between the loop and its
// subscribers; a real watermill gochannel hands messages to subscribers on
// their own goroutine via a channel read, which cannot offer that ordering
// guarantee, so this package keeps the teacher's actual delivery mechanism
// — direct subscriber lists under a mutex — rather than carrying the
// dependency forward for a concern it was never wired to.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/agentcore-run/agentcore/internal/logging"
)

// Type identifies an Event's shape. Values mirror the external event
// contract: message_start, message_update, message_end, tool_execution_*,
// queue_changed, compaction_started, compaction_finished, error.
type Type string

const (
	MessageStart       Type = "message_start"
	MessageUpdate      Type = "message_update"
	MessageEnd         Type = "message_end"
	ToolExecutionStart Type = "tool_execution_start"
	ToolExecutionUpdate Type = "tool_execution_update"
	ToolExecutionEnd   Type = "tool_execution_end"
	QueueChanged       Type = "queue_changed"
	CompactionStarted  Type = "compaction_started"
	CompactionFinished Type = "compaction_finished"
	PermissionRequired Type = "permission_required"
	PermissionResolved Type = "permission_resolved"
	Error              Type = "error"
)

// Event is one fan-out notification. Data carries the type-specific payload
// (e.g. *core.AssistantMessage, a ToolExecutionUpdate). Data is handed to
// every subscriber exactly as published: neither the bus nor the publishers
// copy it, so an object referenced from Data is shared with the publisher
// and with the other subscribers.
type Event struct {
	Type      Type
	SessionID string
	Data      any
}

// Subscriber receives events. It must not panic; a subscriber that panics
// is isolated — the bus recovers and logs, other subscribers still run.
type Subscriber func(Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus is one event bus instance, typically one per running session.
type Bus struct {
	mu sync.RWMutex

	subscribers map[Type][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool
}

// New creates a fresh, empty bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[Type][]subscriberEntry),
	}
}

func (b *Bus) newID() uint64 { return atomic.AddUint64(&b.nextID, 1) }

// Subscribe registers fn for events of exactly one type.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := b.newID()
	b.subscribers[t] = append(b.subscribers[t], subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribe(t, id) }
}

// SubscribeAll registers fn for every event type.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribeGlobal(id) }
}

func (b *Bus) unsubscribe(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[t]
	for i, e := range subs {
		if e.id == id {
			b.subscribers[t] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.global {
		if e.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			return
		}
	}
}

// collect returns every subscriber interested in ev's type, under read lock.
func (b *Bus) collect(t Type) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	subs := make([]Subscriber, 0, len(b.subscribers[t])+len(b.global))
	for _, e := range b.subscribers[t] {
		subs = append(subs, e.fn)
	}
	for _, e := range b.global {
		subs = append(subs, e.fn)
	}
	return subs
}

// Publish delivers ev to every interested subscriber synchronously, in
// registration order, on the calling goroutine. This is the mode the Agent
// Loop uses: the spec requires subscribers to run on the same task as the
// loop, with no parallelism between loop and subscriber delivery.
func (b *Bus) Publish(ev Event) {
	for _, sub := range b.collect(ev.Type) {
		invoke(sub, ev)
	}
}

// PublishAsync delivers ev to every interested subscriber on its own
// goroutine. Provided for frontends that want fire-and-forget fan-out
// outside the loop's serialized task (e.g. a UI log sink); the Agent Loop
// itself always uses Publish.
func (b *Bus) PublishAsync(ev Event) {
	for _, sub := range b.collect(ev.Type) {
		go invoke(sub, ev)
	}
}

// invoke calls a subscriber with panic isolation.
func invoke(sub Subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("event_type", string(ev.Type)).
				Msg("eventbus: subscriber panicked, isolated")
		}
	}()
	sub(ev)
}

// Close releases the bus. No further events are delivered after Close.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[Type][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()
	return nil
}
