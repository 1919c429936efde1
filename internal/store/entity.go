// Package store holds the client-side caches for the library service.
//
// Each store wraps one REST collection. Reads are synchronous and served
// from memory; writes go to the network first and only touch the cache on
// success. Network I/O never happens while the store's lock is held.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/event"
)

// ErrRefetchFailed marks a write that reached the server but whose follow-up
// reload failed. The returned entity is the server's write response.
var ErrRefetchFailed = errors.New("reload after write failed")

// Option configures an EntityStore
type Option func(*options)

type options struct {
	refetchAfterWrite bool
}

// WithRefetchAfterWrite makes Create and Update reload the whole collection
// after a successful write, so server-side joins are present on the new item.
func WithRefetchAfterWrite() Option {
	return func(o *options) { o.refetchAfterWrite = true }
}

// EntityStore caches one entity collection in server order.
type EntityStore[T domain.Entity, F any] struct {
	name   string
	repo   domain.Repository[T, F]
	logger *slog.Logger
	opts   options

	mu       sync.RWMutex
	items    []T
	loaded   bool
	inFlight int
}

// NewEntityStore creates an empty, unloaded store. name is used in logs and
// error messages.
func NewEntityStore[T domain.Entity, F any](
	name string,
	repo domain.Repository[T, F],
	logger *slog.Logger,
	opts ...Option,
) *EntityStore[T, F] {
	if logger == nil {
		logger = slog.Default()
	}
	s := &EntityStore[T, F]{name: name, repo: repo, logger: logger}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// === Commands ===

// FetchAll loads the collection unless it is already loaded.
func (s *EntityStore[T, F]) FetchAll(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}
	return s.fetch(ctx, "fetch")
}

// Refresh reloads the collection unconditionally.
func (s *EntityStore[T, F]) Refresh(ctx context.Context) error {
	return s.fetch(ctx, "refresh")
}

func (s *EntityStore[T, F]) fetch(ctx context.Context, op string) error {
	s.begin()
	defer s.end()

	items, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to "+op+" "+s.name, "error", err)
		return fmt.Errorf("%s %s: %w", op, s.name, err)
	}

	s.mu.Lock()
	s.items = items
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug(op+"ed "+s.name, "count", len(items))
	return nil
}

// Create adds an entity and appends the server's copy to the cache. A failed
// reload is reported wrapping ErrRefetchFailed; the item stays cached.
func (s *EntityStore[T, F]) Create(ctx context.Context, fields F) (T, error) {
	created, err := s.repo.Create(ctx, fields)
	if err != nil {
		s.logger.Error("failed to create "+s.name, "error", err)
		var zero T
		return zero, fmt.Errorf("create %s: %w", s.name, err)
	}

	s.mu.Lock()
	s.items = append(s.items, created)
	s.mu.Unlock()

	s.logger.Info("created "+s.name, "id", created.GetID())

	if s.opts.refetchAfterWrite {
		if err := s.Refresh(ctx); err != nil {
			return created, fmt.Errorf("%w: %w", ErrRefetchFailed, err)
		}
		if fresh, ok := s.Get(created.GetID()); ok {
			created = fresh
		}
	}
	return created, nil
}

// Update writes fields to the entity and replaces the cached copy. A failed
// reload is reported wrapping ErrRefetchFailed.
func (s *EntityStore[T, F]) Update(ctx context.Context, id domain.ID, fields F) (T, error) {
	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		s.logger.Error("failed to update "+s.name, "error", err, "id", id)
		var zero T
		return zero, fmt.Errorf("update %s %s: %w", s.name, id, err)
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].GetID() == id {
			s.items[i] = updated
			break
		}
	}
	s.mu.Unlock()

	s.logger.Info("updated "+s.name, "id", id)

	if s.opts.refetchAfterWrite {
		if err := s.Refresh(ctx); err != nil {
			return updated, fmt.Errorf("%w: %w", ErrRefetchFailed, err)
		}
		if fresh, ok := s.Get(id); ok {
			updated = fresh
		}
	}
	return updated, nil
}

// Delete removes the entity on the server and from the cache.
func (s *EntityStore[T, F]) Delete(ctx context.Context, id domain.ID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete "+s.name, "error", err, "id", id)
		return fmt.Errorf("delete %s %s: %w", s.name, id, err)
	}

	s.mu.Lock()
	kept := s.items[:0:0]
	for _, item := range s.items {
		if item.GetID() != id {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.mu.Unlock()

	s.logger.Info("deleted "+s.name, "id", id)
	return nil
}

// Patch edits one cached item in place without a network call. It reports
// whether the item was found.
func (s *EntityStore[T, F]) Patch(id domain.ID, fn func(*T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].GetID() == id {
			fn(&s.items[i])
			return true
		}
	}
	return false
}

// Reset empties the cache and marks it unloaded.
func (s *EntityStore[T, F]) Reset() {
	s.mu.Lock()
	s.items = nil
	s.loaded = false
	s.mu.Unlock()
}

// RefreshOn refreshes the store whenever one of signals is published, but
// only once the store has been loaded by someone.
func (s *EntityStore[T, F]) RefreshOn(bus *event.Bus, signals ...event.Signal) event.Group {
	group := make(event.Group, 0, len(signals))
	for _, sig := range signals {
		group = append(group, bus.Subscribe(sig, func(ctx context.Context) error {
			if !s.Loaded() {
				return nil
			}
			return s.Refresh(ctx)
		}))
	}
	return group
}

// === Queries (cache only) ===

// Items returns a snapshot of the cached collection.
func (s *EntityStore[T, F]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Get looks up one cached entity.
func (s *EntityStore[T, F]) Get(id domain.ID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.GetID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Loading reports whether a fetch is in flight.
func (s *EntityStore[T, F]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// Loaded reports whether a fetch has succeeded since the last Reset.
func (s *EntityStore[T, F]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Name returns the collection name.
func (s *EntityStore[T, F]) Name() string {
	return s.name
}

func (s *EntityStore[T, F]) begin() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

func (s *EntityStore[T, F]) end() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}
