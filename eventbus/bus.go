// Package eventbus implements the Event Bus (C2): a bounded broadcast of
// typed pipeline events. Producers never block — a slow subscriber
// silently misses events rather than stalling the emitter; events carry
// no sequence number, so the loss is not visible to the subscriber. Grounded in the teacher's channel-based concurrency idiom
// (background.go's stopCh/ticker pattern, generalized to fan-out) and in
// original_source's swarm/events.rs closed event-kind set.
package eventbus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/madhatter5501/catalyst/domain"
)

// capacity is the bounded channel size per subscriber, per §4.2.
const capacity = 100

// Bus is a multi-subscriber broadcaster. The zero value is not usable;
// construct with New.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]chan domain.Event
	nextID      int
	seq         uint64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[int]chan domain.Event)}
}

// Subscription is a handle returned by Subscribe; call Unsubscribe when
// the caller drops interest in events.
type Subscription struct {
	id     int
	bus    *Bus
	events chan domain.Event
}

// Events returns the channel the subscriber should range over.
func (s *Subscription) Events() <-chan domain.Event { return s.events }

// Unsubscribe removes and closes the subscriber's channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if ch, ok := s.bus.subscribers[s.id]; ok {
		delete(s.bus.subscribers, s.id)
		close(ch)
	}
}

// Subscribe registers a new bounded-capacity subscriber.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, capacity)
	b.subscribers[id] = ch
	return &Subscription{id: id, bus: b, events: ch}
}

// Publish constructs and broadcasts an Event. It never blocks: if a
// subscriber's channel is full, that subscriber silently misses this
// event (documented as advisory in DESIGN NOTES — critical transitions
// must also be persisted in the store, see internal/store.AppendEvent).
func (b *Bus) Publish(kind domain.EventKind, agent, unknownID string, data map[string]any) domain.Event {
	b.mu.Lock()
	b.seq++
	ev := domain.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Agent:     agent,
		UnknownID: unknownID,
		Data:      data,
	}
	subs := make([]chan domain.Event, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop. Producer never blocks.
		}
	}
	return ev
}
