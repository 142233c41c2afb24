// Package notify fans analysis outcomes out to the configured channels:
// in-app events consumed over SSE, and the Telegram Bot API.
package notify

import (
	"sync"
	"time"
)

// EventKind classifies an in-app event.
type EventKind string

const (
	EventJobComplete EventKind = "job_complete"
	EventError       EventKind = "error"
	EventInsight     EventKind = "insight"
	EventHealth      EventKind = "health"
)

// Event is one in-app notification delivered to SSE subscribers.
type Event struct {
	Kind      EventKind `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus is a fan-out broker for in-app events. Delivery is best effort: a
// subscriber that is not draining its channel misses events rather than
// blocking the publisher.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called to release the subscription.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every current subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
