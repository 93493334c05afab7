// internal/adapter/events/local_bus.go

package events

import (
	"context"
	"sync"

	"freedomwall/internal/domain/message"
)

// LocalBus fans events out to in-process subscribers. It is used when NATS
// is not configured and in tests.
type LocalBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(message.Event)
}

// NewLocalBus creates an empty in-process bus
func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[int]func(message.Event))}
}

// Publish delivers the event synchronously to every subscriber
func (b *LocalBus) Publish(ctx context.Context, event message.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	handlers := make([]func(message.Event), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Subscribe registers handler until cancel is called
func (b *LocalBus) Subscribe(handler func(message.Event)) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}, nil
}
