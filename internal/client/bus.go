package client

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"

	"github.com/dkeye/Presence/internal/domain"
)

type Handler func(domain.Payload)

type HandlerID uint64

type handlerEntry struct {
	id HandlerID
	fn Handler
}

// Bus is a synchronous event bus keyed by event name. A panicking handler
// is logged and does not stop the handlers after it.
type Bus struct {
	mu       sync.RWMutex
	next     HandlerID
	handlers map[domain.EventName][]handlerEntry
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[domain.EventName][]handlerEntry)}
}

func (b *Bus) On(name domain.EventName, fn Handler) HandlerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.handlers[name] = append(b.handlers[name], handlerEntry{id: b.next, fn: fn})
	return b.next
}

// Off reports whether a handler was removed.
func (b *Bus) Off(name domain.EventName, id HandlerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[name]
	for i, h := range list {
		if h.id != id {
			continue
		}
		rest := make([]handlerEntry, 0, len(list)-1)
		rest = append(rest, list[:i]...)
		rest = append(rest, list[i+1:]...)
		if len(rest) == 0 {
			delete(b.handlers, name)
		} else {
			b.handlers[name] = rest
		}
		return true
	}
	return false
}

// Emit runs handlers registered when the call starts, in registration order.
func (b *Bus) Emit(p domain.Payload) {
	name := p.EventName()
	b.mu.RLock()
	list := b.handlers[name]
	b.mu.RUnlock()

	for _, h := range list {
		var pc panics.Catcher
		pc.Try(func() { h.fn(p) })
		if r := pc.Recovered(); r != nil {
			log.Error().Str("module", "client.bus").Str("event", string(name)).Err(r.AsError()).Msg("handler panicked")
		}
	}
}

// Handle registers a handler for the event that T represents.
func Handle[T domain.Payload](b *Bus, fn func(T)) HandlerID {
	var zero T
	return b.On(zero.EventName(), func(p domain.Payload) {
		if v, ok := p.(T); ok {
			fn(v)
		}
	})
}
