// Package signals implements a per-session publish/subscribe bus with typed
// events. Handlers run synchronously on the emitting goroutine.
package signals

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/scenecalc/pkg/logger"
	"github.com/okian/scenecalc/pkg/metrics"
)

// Handler receives an event.
type Handler func(ctx context.Context, e Event)

// SubscriptionID identifies a registered handler.
type SubscriptionID = uuid.UUID

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Option applies a configuration option to the Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report handler panics.
func WithLogger(l logger.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

// Bus dispatches events to subscribers in subscription order. It is safe
// for concurrent use; a handler may subscribe or unsubscribe while being
// invoked, taking effect from the next emission.
type Bus struct {
	log logger.Logger

	mu     sync.RWMutex
	subs   map[Kind][]subscription
	kinds  map[SubscriptionID]Kind
	closed bool
}

// New creates an open bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		log:   logger.Nop(),
		subs:  make(map[Kind][]subscription),
		kinds: make(map[SubscriptionID]Kind),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h for events of kind.
func (b *Bus) Subscribe(kind Kind, h Handler) (SubscriptionID, error) {
	if h == nil {
		return uuid.Nil, ErrNilHandler
	}
	if !kind.Valid() {
		return uuid.Nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return uuid.Nil, ErrClosed
	}
	id := uuid.New()
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: h})
	b.kinds[id] = kind
	metrics.UpdateSignalSubscribers(len(b.kinds))
	return id, nil
}

// On registers a handler typed on the concrete event E.
func On[E Event](b *Bus, h func(ctx context.Context, e E)) (SubscriptionID, error) {
	if h == nil {
		return uuid.Nil, ErrNilHandler
	}
	var zero E
	return b.Subscribe(zero.Kind(), func(ctx context.Context, e Event) {
		if ev, ok := e.(E); ok {
			h(ctx, ev)
		}
	})
}

// Unsubscribe removes a handler. It reports whether id was registered.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	kind, ok := b.kinds[id]
	if !ok {
		return false
	}
	delete(b.kinds, id)
	list := b.subs[kind]
	for i, s := range list {
		if s.id == id {
			// Copy so an in-flight Emit keeps its snapshot intact.
			next := make([]subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			b.subs[kind] = append(next, list[i+1:]...)
			break
		}
	}
	metrics.UpdateSignalSubscribers(len(b.kinds))
	return true
}

// Emit delivers e to every handler subscribed to its kind and returns how
// many were invoked. A panicking handler is logged and skipped. Emit on a
// closed bus does nothing.
func (b *Bus) Emit(ctx context.Context, e Event) int {
	if e == nil {
		return 0
	}
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0
	}
	handlers := b.subs[e.Kind()]
	b.mu.RUnlock()

	metrics.RecordSignalEmitted(e.Kind().String())
	for _, s := range handlers {
		b.invoke(ctx, s, e)
	}
	return len(handlers)
}

func (b *Bus) invoke(ctx context.Context, s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordSignalHandlerPanic(e.Kind().String())
			b.log.Error(ctx, "event handler panicked",
				logger.String("kind", e.Kind().String()),
				logger.String("subscription", s.id.String()),
				logger.Any("panic", r))
		}
	}()
	s.handler(ctx, e)
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.kinds)
}

// Close drops every subscription. Later Subscribe calls fail with ErrClosed
// and Emit becomes a no-op. Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.subs = make(map[Kind][]subscription)
	b.kinds = make(map[SubscriptionID]Kind)
	metrics.UpdateSignalSubscribers(0)
}
