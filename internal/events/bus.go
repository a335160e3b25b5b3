// Package events provides a small pub/sub bus used to broadcast ingestion and
// supervisor state transitions.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Type identifies the kind of event emitted on the bus.
type Type string

const (
	// BarIngested fires whenever the aggregator finishes processing one 1-minute bar.
	BarIngested Type = "bar_ingested"
	// TransportChanged fires whenever the streaming supervisor's active transport
	// changes (ws -> rest fallback, or explicit start).
	TransportChanged Type = "transport_changed"
	// FallbackTriggered fires exactly once per process lifetime, the moment the
	// one-shot WS -> REST fallback latch trips.
	FallbackTriggered Type = "fallback_triggered"
)

// Event is a single pub/sub message.
type Event struct {
	Type      Type
	Timestamp time.Time
	Symbol    string // empty for supervisor-wide events
	Data      map[string]interface{}
}

// Handler processes one event. Handlers run concurrently and must not block for long.
type Handler func(*Event)

// Subscription identifies a registered handler so it can be removed later.
type Subscription struct {
	eventType Type
	id        uint64
}

// Bus is a minimal, goroutine-safe publish/subscribe hub.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type]map[uint64]Handler
	nextID      uint64
	log         zerolog.Logger
}

// NewBus creates an empty event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[Type]map[uint64]Handler),
		log:         log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers handler for eventType and returns a token for Unsubscribe.
func (b *Bus) Subscribe(eventType Type, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[uint64]Handler)
	}
	b.subscribers[eventType][id] = handler
	return Subscription{eventType: eventType, id: id}
}

// Unsubscribe removes a previously registered handler. Safe to call more than once.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handlers, ok := b.subscribers[sub.eventType]; ok {
		delete(handlers, sub.id)
		if len(handlers) == 0 {
			delete(b.subscribers, sub.eventType)
		}
	}
}

// Emit publishes an event to every current subscriber of eventType. Handlers are
// invoked on their own goroutine so a slow subscriber never blocks the producer that
// triggered the event.
func (b *Bus) Emit(eventType Type, symbol string, data map[string]interface{}) {
	event := &Event{Type: eventType, Timestamp: time.Now(), Symbol: symbol, Data: data}

	b.mu.RLock()
	var handlers []Handler
	if registered := b.subscribers[eventType]; len(registered) > 0 {
		handlers = make([]Handler, 0, len(registered))
		for _, h := range registered {
			handlers = append(handlers, h)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		go h(event)
	}

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("symbol", symbol).
		Int("subscribers", len(handlers)).
		Msg("event emitted")
}
