// Package event carries change notifications between the entity stores and
// the views that depend on them.
package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Signal names a kind of change. Signals carry no payload; receivers refetch.
type Signal string

const (
	AuthorsChanged Signal = "authorsChanged"
	BooksChanged   Signal = "booksChanged"
	UsersChanged   Signal = "usersChanged"
)

// Handler reacts to a signal, typically by refreshing a cache.
type Handler func(ctx context.Context) error

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe registry. The zero value is not
// usable; call NewBus.
type Bus struct {
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[Signal][]subscriber
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		subs:   make(map[Signal][]subscriber),
	}
}

// Subscribe registers handler for signal. Callers must Unsubscribe when the
// owning component goes away.
func (b *Bus) Subscribe(signal Signal, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[signal] = append(b.subs[signal], subscriber{id: b.nextID, handler: handler})
	return &Subscription{bus: b, signal: signal, id: b.nextID}
}

// Publish invokes every current subscriber of signal in registration order
// and returns once all of them have run. Subscriptions added or removed by a
// handler take effect on the next Publish. Failures are joined; one failing
// handler does not stop the rest.
func (b *Bus) Publish(ctx context.Context, signal Signal) error {
	b.mu.Lock()
	current := make([]subscriber, len(b.subs[signal]))
	copy(current, b.subs[signal])
	b.mu.Unlock()

	if len(current) == 0 {
		b.logger.Debug("signal dropped, no subscribers", "signal", signal)
		return nil
	}

	var errs []error
	for _, sub := range current {
		if err := sub.handler(ctx); err != nil {
			b.logger.Warn("signal handler failed", "signal", signal, "error", err)
			errs = append(errs, err)
		}
	}
	b.logger.Debug("signal published", "signal", signal, "subscribers", len(current))
	return errors.Join(errs...)
}

// Subscribers returns the number of handlers registered for signal.
func (b *Bus) Subscribers(signal Signal) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[signal])
}

func (b *Bus) remove(signal Signal, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[signal]
	for i, sub := range subs {
		if sub.id == id {
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.subs[signal] = next
			return
		}
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus    *Bus
	signal Signal
	id     uint64
	once   sync.Once
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.signal, s.id)
	})
}

// Group collects subscriptions that share a lifetime.
type Group []*Subscription

// Unsubscribe releases every subscription in the group.
func (g Group) Unsubscribe() {
	for _, s := range g {
		s.Unsubscribe()
	}
}
