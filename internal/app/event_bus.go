package app

import (
	"sync"

	"github.com/yourusername/tubequeue/internal/domain"
)

// EventBus is the multi-producer, single-consumer channel between
// background goroutines and the consumer loop. Post never blocks the
// producer; Drain never blocks the consumer. Events from one producer
// are delivered in the order that producer posted them.
type EventBus struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewEventBus creates an empty event bus
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Post appends an event for the consumer to pick up
func (b *EventBus) Post(ev domain.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// Drain removes and returns all pending events, oldest first. Returns
// nil when nothing is pending.
func (b *EventBus) Drain() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	out := b.events
	b.events = nil
	return out
}

// Pending reports how many events are waiting
func (b *EventBus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
