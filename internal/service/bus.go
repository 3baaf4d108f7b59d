package service

import (
	"sync"

	"github.com/paulmach/orb"
)

// Event kinds published on the bus.
const (
	KindState = "state"
	KindClick = "click"
)

// Event represents a map lifecycle change or interaction.
type Event struct {
	Kind     string     // KindState or KindClick
	Instance string     // map instance id
	State    string     // composition state, for KindState
	Error    string     // failure reason, if any
	LngLat   *orb.Point // for KindClick
}

// EventBus is a simple fan-out pub/sub for map events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
