package eventbus

import (
	"context"
	"errors"
	"sync"
)

// Wildcard subscribes a handler to every event name.
const Wildcard = "*"

// Event is anything published on the bus.
type Event interface {
	EventName() string
}

// Handler handles a published event.
type Handler func(ctx context.Context, event Event) error

// ErrNilEvent is returned when a nil event is published.
var ErrNilEvent = errors.New("eventbus: nil event")

// ErrUnnamedEvent is returned when an event reports an empty name.
var ErrUnnamedEvent = errors.New("eventbus: unnamed event")

// Bus is a synchronous in-process fan-out of dashboard events.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Publish dispatches an event to its named handlers, then wildcard handlers.
// Every handler runs; the first error is returned.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return ErrNilEvent
	}
	name := event.EventName()
	if name == "" {
		return ErrUnnamedEvent
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[name])+len(b.handlers[Wildcard]))
	handlers = append(handlers, b.handlers[name]...)
	handlers = append(handlers, b.handlers[Wildcard]...)
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Subscribe registers a handler for an event name, or Wildcard.
func (b *Bus) Subscribe(name string, handler Handler) {
	if name == "" || handler == nil {
		return
	}
	b.mu.Lock()
	b.handlers[name] = append(b.handlers[name], handler)
	b.mu.Unlock()
}
