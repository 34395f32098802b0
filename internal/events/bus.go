// Package events provides the notification channel between the game core and
// the presentation layer: a small publish/subscribe bus with synchronous,
// ordered dispatch over a fixed set of named topics.
package events

import "sync"

// Topic names every notification the core emits. The presentation layer
// subscribes to these; the same names are forwarded to the frontend.
type Topic string

const (
	StatusUpdated     Topic = "status-updated"
	BalanceUpdated    Topic = "balance-updated"
	Interacted        Topic = "interacted"
	ErrorRaised       Topic = "error"
	GameLoaded        Topic = "game-loaded"
	DifficultyChanged Topic = "difficulty-changed"
	StakeChanged      Topic = "stake-changed"
)

// Handler receives the payload published on a topic.
type Handler func(payload any)

type subscriber struct {
	id      int
	handler Handler
}

// Bus is a synchronous publish/subscribe dispatcher. Handlers run on the
// publishing goroutine, in subscription order, before Publish returns —
// this preserves the ordering guarantee the state machine relies on.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[Topic][]subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscriber)}
}

// Subscribe registers a handler for a topic and returns an unsubscribe func.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscriber{id: id, handler: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[topic]
		for i, s := range list {
			if s.id == id {
				b.subs[topic] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the payload to every handler subscribed to the topic.
// Dispatch is synchronous: all handlers have run when Publish returns.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.Lock()
	list := make([]subscriber, len(b.subs[topic]))
	copy(list, b.subs[topic])
	b.mu.Unlock()

	for _, s := range list {
		s.handler(payload)
	}
}
