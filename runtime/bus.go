// Package runtime handles session lifecycle, event dispatch, polling and
// cross-context relay. It orchestrates the system without containing
// business logic or domain rules.
package runtime

import (
	"log/slog"
	"sync"

	"chat-mesh/domain/event"
)

type Handler func(e event.Event)

type subscription struct {
	id int
	fn Handler
}

// Bus is the per-session typed pub/sub dispatcher. Handlers for one event
// type run synchronously in registration order. Dispatch works on a
// snapshot of the handler list, so unsubscribing mid-dispatch never
// affects the pass in flight, and a panicking handler is isolated so the
// remaining handlers still run.
type Bus struct {
	mu       sync.Mutex
	log      *slog.Logger
	nextID   int
	handlers map[event.Type][]subscription
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{log: log, handlers: make(map[event.Type][]subscription)}
}

// Subscribe registers a handler for one event type and returns the
// capability to deregister exactly that registration.
func (b *Bus) Subscribe(t event.Type, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, s := range subs {
			if s.id == id {
				b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) Publish(e event.Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.handlers[e.Type]))
	copy(subs, b.handlers[e.Type])
	b.mu.Unlock()

	for _, s := range subs {
		b.invoke(s, e)
	}
}

func (b *Bus) invoke(s subscription, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event handler panicked",
				"type", string(e.Type), "panic", r)
		}
	}()
	s.fn(e)
}

// Clear drops every registration. Called on disconnect.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[event.Type][]subscription)
}
