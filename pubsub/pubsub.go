// Package pubsub decouples "a session changed" from "who is listening".
// For each session ID it keeps a shared wait-handle plus a single-slot
// mailbox holding only the most recent event. Payloads are opaque to the
// hub; publishers overwrite rather than queue, which is lossless here
// because every payload is a full-state snapshot.
package pubsub

import (
	"sync"
	"sync/atomic"
)

// Notifier is a shared wait-handle. Any number of goroutines can wait on
// it; one Broadcast wakes all of them. Waking is edge-triggered: a channel
// obtained from Wait before a Broadcast is closed by it, a channel obtained
// after is not.
type Notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

func newNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{})}
}

// Wait returns a channel closed by the next Broadcast. Callers that loop
// must fetch the next channel before consuming the event that woke them,
// or a publish landing in between is lost.
func (n *Notifier) Wait() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

// Broadcast wakes every goroutine currently waiting and re-arms.
func (n *Notifier) Broadcast() {
	n.mu.Lock()
	close(n.ch)
	n.ch = make(chan struct{})
	n.mu.Unlock()
}

// mailbox is the single most-recent-event slot. The pointer swap lets a
// publisher replace the payload without blocking concurrent readers.
type mailbox struct {
	v atomic.Pointer[any]
}

// PubSub holds per-session notifiers and mailboxes. None of its operations
// perform I/O, so none of them can fail; reading an empty mailbox just
// reports no event.
type PubSub struct {
	notifiersMu sync.RWMutex
	notifiers   map[string]*Notifier

	eventsMu sync.RWMutex
	events   map[string]*mailbox
}

// New creates an empty hub.
func New() *PubSub {
	return &PubSub{
		notifiers: make(map[string]*Notifier),
		events:    make(map[string]*mailbox),
	}
}

// Subscribe returns the shared notifier for a session, creating it on first
// call. Every subscriber of a session gets the same notifier, so a single
// publish wakes all of them.
func (p *PubSub) Subscribe(sessionID string) *Notifier {
	p.notifiersMu.Lock()
	defer p.notifiersMu.Unlock()
	n, ok := p.notifiers[sessionID]
	if !ok {
		n = newNotifier()
		p.notifiers[sessionID] = n
	}
	return n
}

// Publish stores the event in the session's mailbox and wakes every waiter.
// If no notifier was ever registered for the session the event is dropped:
// pub/sub semantics, not store-and-forward. The mailbox write completes
// before the broadcast, so a woken listener never sees a stale slot.
func (p *PubSub) Publish(sessionID string, event any) {
	p.notifiersMu.RLock()
	n, ok := p.notifiers[sessionID]
	p.notifiersMu.RUnlock()
	if !ok {
		return
	}

	p.eventsMu.RLock()
	m, ok := p.events[sessionID]
	p.eventsMu.RUnlock()
	if !ok {
		p.eventsMu.Lock()
		m, ok = p.events[sessionID]
		if !ok {
			m = &mailbox{}
			p.events[sessionID] = m
		}
		p.eventsMu.Unlock()
	}
	m.v.Store(&event)

	n.Broadcast()
}

// GetEvent reads the current mailbox contents without removing them.
func (p *PubSub) GetEvent(sessionID string) (any, bool) {
	p.eventsMu.RLock()
	m, ok := p.events[sessionID]
	p.eventsMu.RUnlock()
	if !ok {
		return nil, false
	}
	ptr := m.v.Load()
	if ptr == nil {
		return nil, false
	}
	return *ptr, true
}

// ConsumeEvent reads and removes the mailbox contents in one step, for
// callers that need exactly-once draining.
func (p *PubSub) ConsumeEvent(sessionID string) (any, bool) {
	p.eventsMu.Lock()
	m, ok := p.events[sessionID]
	delete(p.events, sessionID)
	p.eventsMu.Unlock()
	if !ok {
		return nil, false
	}
	ptr := m.v.Load()
	if ptr == nil {
		return nil, false
	}
	return *ptr, true
}

// CleanupSession removes the notifier and mailbox for a session. Callers
// must know no subscriber remains interested; a goroutine still holding the
// old notifier keeps working, it just becomes unreachable for new
// subscribers.
func (p *PubSub) CleanupSession(sessionID string) {
	p.eventsMu.Lock()
	delete(p.events, sessionID)
	p.eventsMu.Unlock()
	p.notifiersMu.Lock()
	delete(p.notifiers, sessionID)
	p.notifiersMu.Unlock()
}

// SessionCount returns the number of sessions with a registered notifier.
func (p *PubSub) SessionCount() int {
	p.notifiersMu.RLock()
	defer p.notifiersMu.RUnlock()
	return len(p.notifiers)
}

// SessionIDs returns the IDs of every session with a registered notifier.
func (p *PubSub) SessionIDs() []string {
	p.notifiersMu.RLock()
	defer p.notifiersMu.RUnlock()
	ids := make([]string, 0, len(p.notifiers))
	for id := range p.notifiers {
		ids = append(ids, id)
	}
	return ids
}

// HasEvent reports whether a session has a pending event.
func (p *PubSub) HasEvent(sessionID string) bool {
	p.eventsMu.RLock()
	m, ok := p.events[sessionID]
	p.eventsMu.RUnlock()
	return ok && m.v.Load() != nil
}
