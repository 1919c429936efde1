// Package library is the view-facing layer over the entity stores. It issues
// mutations, applies cross-store side effects and publishes change signals.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/event"
	"github.com/mmcdole/libraryhub/internal/store"
)

// ErrSyncFailed wraps failures of dependent refreshes that ran after a
// successful write. The write itself took effect.
var ErrSyncFailed = errors.New("write succeeded but dependent views failed to refresh")

type (
	AuthorStore = store.EntityStore[domain.Author, domain.AuthorFields]
	BookStore   = store.EntityStore[domain.Book, domain.BookFields]
	UserStore   = store.EntityStore[domain.User, domain.UserFields]
)

// Repositories bundles the REST collections the service needs.
type Repositories struct {
	Authors domain.AuthorRepository
	Books   domain.BookRepository
	Users   domain.UserRepository
	Loans   domain.BorrowRepository
}

// Service owns the stores and the invalidation wiring between them.
type Service struct {
	Authors *AuthorStore
	Books   *BookStore
	Users   *UserStore
	Borrows *store.BorrowStore

	bus    *event.Bus
	logger *slog.Logger
	subs   event.Group
}

// NewService creates the stores and subscribes them to the bus. Call Close
// to release the subscriptions.
func NewService(repos Repositories, bus *event.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		Authors: store.NewEntityStore[domain.Author, domain.AuthorFields]("authors", repos.Authors, logger),
		Books: store.NewEntityStore[domain.Book, domain.BookFields]("books", repos.Books, logger,
			store.WithRefetchAfterWrite()),
		Users:   store.NewEntityStore[domain.User, domain.UserFields]("users", repos.Users, logger),
		Borrows: store.NewBorrowStore(repos.Loans, logger),
		bus:     bus,
		logger:  logger,
	}

	// Book rows render author names from the server join.
	s.subs = append(s.subs, s.Books.RefreshOn(bus, event.AuthorsChanged)...)
	// Borrow records embed book snapshots.
	s.subs = append(s.subs, s.Borrows.InvalidateOn(bus, event.BooksChanged, event.AuthorsChanged)...)
	return s
}

// Bus returns the invalidation bus the stores are wired to.
func (s *Service) Bus() *event.Bus {
	return s.bus
}

// Close releases the store subscriptions
func (s *Service) Close() {
	s.subs.Unsubscribe()
	s.subs = nil
}

// Reset drops every cache, e.g. after logout.
func (s *Service) Reset() {
	s.Authors.Reset()
	s.Books.Reset()
	s.Users.Reset()
	s.Borrows.InvalidateAll()
	s.logger.Info("cleared all caches")
}

// publish announces a completed write. Handler failures are reported as
// ErrSyncFailed; the write is not undone.
func (s *Service) publish(ctx context.Context, signal event.Signal) error {
	return s.settle(ctx, signal, nil)
}

// settle publishes signal after a write that took effect. staleErr is a
// refresh that already failed as part of the write; it is reported with any
// handler failures as ErrSyncFailed.
func (s *Service) settle(ctx context.Context, signal event.Signal, staleErr error) error {
	err := errors.Join(staleErr, s.bus.Publish(ctx, signal))
	if err != nil {
		s.logger.Warn("dependent refresh failed", "signal", signal, "error", err)
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}
	return nil
}

// written reports whether err still means the write reached the server
func written(err error) bool {
	return err == nil || errors.Is(err, store.ErrRefetchFailed)
}
