package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

const subscriberBuffer = 100

type subscription struct {
	ch    chan Event
	types map[Type]struct{}
}

func (s *subscription) wants(t Type) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// InMemoryBus fans events out to subscribers without ever blocking the
// publisher. A subscriber whose buffer is full misses the event.
type InMemoryBus struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]*subscription
	dropped atomic.Uint64
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[uint64]*subscription)}
}

func (b *InMemoryBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subs {
		if !sub.wants(e.Type) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
			slog.Warn("event dropped for slow subscriber", "subscriber", id, "type", e.Type)
		}
	}
}

// Subscribe registers a listener for the given event types, or for every
// type when none are given. The returned cancel func closes the channel and
// is safe to call more than once.
func (b *InMemoryBus) Subscribe(types ...Type) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, subscriberBuffer)}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Dropped reports how many deliveries were skipped because a subscriber
// fell behind.
func (b *InMemoryBus) Dropped() uint64 {
	return b.dropped.Load()
}
