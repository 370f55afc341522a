// Package agentloop implements the Agent Loop: the turn-by-turn state
// machine that drains queued user input, drives one Provider Transport
// streaming call per round, dispatches any resulting tool calls through the
// Tool Executor, appends every observable step to the Session Log, and
// re-enters until no tool calls remain or a stop condition triggers.
//
// Grounded in the teacher's internal/session/{loop,processor,tools}.go
// turn-scheduling shape (retry backoff, step limit, tool dispatch), rebuilt
// against the Session Log / Context Builder / Event Bus / Tool Executor
// components instead of the teacher's flat message-list storage model.
package agentloop

import (
	"sync"
	"time"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// queue holds one kind (steering or follow-up) of QueuedUserMessage with
// strictly monotonic timestamps as identity, per spec.md §3/§4.5.
type queue struct {
	mu     sync.Mutex
	kind   core.QueueKind
	items  []core.QueuedUserMessage
	lastTS int64
}

func newQueue(kind core.QueueKind) *queue {
	return &queue{kind: kind}
}

// Enqueue appends a new message with a strictly increasing timestamp, even
// when two messages arrive within the same clock tick.
func (q *queue) Enqueue(text string, attachments []core.Attachment) core.QueuedUserMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	ts := time.Now().UnixMilli()
	if ts <= q.lastTS {
		ts = q.lastTS + 1
	}
	q.lastTS = ts

	m := core.QueuedUserMessage{Timestamp: ts, Kind: q.kind, Text: text, Attachments: attachments}
	q.items = append(q.items, m)
	return m
}

// DrainOne removes and returns the oldest queued message, if any.
func (q *queue) DrainOne() (core.QueuedUserMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return core.QueuedUserMessage{}, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

// DrainAll removes and returns every queued message, oldest first.
func (q *queue) DrainAll() []core.QueuedUserMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Drain removes messages according to mode: one-at-a-time pops only the
// oldest, all pops everything.
func (q *queue) Drain(mode core.DrainMode) []core.QueuedUserMessage {
	if mode == core.DrainAll {
		return q.DrainAll()
	}
	if m, ok := q.DrainOne(); ok {
		return []core.QueuedUserMessage{m}
	}
	return nil
}

// Edit updates the text of the queued message identified by ts, preserving
// its timestamp. Returns false if the loop already consumed the message
// (race-safe deletion per spec.md §4.5) — the caller should treat false as
// a signal to emit a queue_changed event so the UI can reconcile.
func (q *queue) Edit(ts int64, text string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].Timestamp == ts {
			q.items[i].Text = text
			return true
		}
	}
	return false
}

// RemoveAt removes exactly one entry by its position in the current
// snapshot order. Returns false if index is out of range (already drained).
func (q *queue) RemoveAt(index int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.items) {
		return false
	}
	q.items = append(q.items[:index], q.items[index+1:]...)
	return true
}

// Snapshot returns a copy of the currently queued messages, oldest first.
func (q *queue) Snapshot() []core.QueuedUserMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]core.QueuedUserMessage, len(q.items))
	copy(out, q.items)
	return out
}
