// Package events provides the in-process event bus.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBuffer is the channel capacity given to each subscriber
const DefaultBuffer = 100

// Event is one published occurrence
type Event struct {
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

type subscriber struct {
	ch    chan *Event
	types map[EventType]bool // nil means every type
}

// Bus fans published events out to subscriber channels. A subscriber whose
// buffer is full misses the event; publishing never blocks.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]*subscriber
	next    int
	dropped atomic.Int64
	log     zerolog.Logger
}

// NewBus creates an empty bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]*subscriber),
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe returns a buffered channel receiving events of the given types,
// or of every type when none are named, and a function that unsubscribes
// and closes the channel.
func (b *Bus) Subscribe(types ...EventType) (<-chan *Event, func()) {
	sub := &subscriber{ch: make(chan *Event, DefaultBuffer)}
	if len(types) > 0 {
		sub.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Emit publishes data on behalf of module
func (b *Bus) Emit(module string, data EventData) {
	b.Publish(&Event{
		Type:      data.EventType(),
		Module:    module,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// Publish delivers event to every interested subscriber without blocking
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.types != nil && !sub.types[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
			b.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Subscriber channel full, dropping event")
		}
	}
}

// Subscribers returns the number of active subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
