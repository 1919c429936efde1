package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/event"
)

// BorrowStore caches each user's active loans. A user key being present
// means the loans are known and fresh since the last invalidation.
type BorrowStore struct {
	repo   domain.BorrowRepository
	logger *slog.Logger

	mu       sync.RWMutex
	byUser   map[domain.ID][]domain.BorrowRecord
	inFlight int
}

// NewBorrowStore creates an empty borrow store.
func NewBorrowStore(repo domain.BorrowRepository, logger *slog.Logger) *BorrowStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BorrowStore{
		repo:   repo,
		logger: logger,
		byUser: make(map[domain.ID][]domain.BorrowRecord),
	}
}

// FetchForUser loads a user's loans unless they are already cached.
func (s *BorrowStore) FetchForUser(ctx context.Context, userID domain.ID) error {
	if _, ok := s.BorrowedBooks(userID); ok {
		return nil
	}
	return s.fetch(ctx, userID)
}

// RefreshForUser reloads a user's loans unconditionally.
func (s *BorrowStore) RefreshForUser(ctx context.Context, userID domain.ID) error {
	return s.fetch(ctx, userID)
}

func (s *BorrowStore) fetch(ctx context.Context, userID domain.ID) error {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	records, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to fetch borrowed books", "error", err, "userID", userID)
		return fmt.Errorf("fetch borrowed books for user %s: %w", userID, err)
	}

	s.mu.Lock()
	s.byUser[userID] = records
	s.mu.Unlock()

	s.logger.Debug("fetched borrowed books", "userID", userID, "count", len(records))
	return nil
}

// Borrow lends book to user. On success the user's loans are reloaded once
// and then onSuccess runs; onSuccess is skipped on any failure.
func (s *BorrowStore) Borrow(ctx context.Context, userID, bookID domain.ID, onSuccess func()) error {
	if _, err := s.repo.Borrow(ctx, userID, bookID); err != nil {
		s.logger.Error("failed to borrow book", "error", err, "userID", userID, "bookID", bookID)
		return fmt.Errorf("borrow book %s: %w", bookID, err)
	}
	s.logger.Info("borrowed book", "userID", userID, "bookID", bookID)

	s.Evict(userID)
	if err := s.fetch(ctx, userID); err != nil {
		return err
	}

	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

// ReturnBook closes the loan of book. The cached loans of userID lose every
// record for that book without a refetch; onSuccess then runs.
func (s *BorrowStore) ReturnBook(ctx context.Context, bookID, userID domain.ID, onSuccess func()) error {
	if err := s.repo.Return(ctx, bookID); err != nil {
		s.logger.Error("failed to return book", "error", err, "userID", userID, "bookID", bookID)
		return fmt.Errorf("return book %s: %w", bookID, err)
	}
	s.logger.Info("returned book", "userID", userID, "bookID", bookID)

	s.mu.Lock()
	if records, ok := s.byUser[userID]; ok {
		kept := make([]domain.BorrowRecord, 0, len(records))
		for _, rec := range records {
			if rec.BookID != bookID {
				kept = append(kept, rec)
			}
		}
		s.byUser[userID] = kept
	}
	s.mu.Unlock()

	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

// InvalidateAll drops every cached user.
func (s *BorrowStore) InvalidateAll() {
	s.mu.Lock()
	n := len(s.byUser)
	s.byUser = make(map[domain.ID][]domain.BorrowRecord)
	s.mu.Unlock()

	if n > 0 {
		s.logger.Debug("invalidated borrowed books", "users", n)
	}
}

// Evict drops one user's cached loans.
func (s *BorrowStore) Evict(userID domain.ID) {
	s.mu.Lock()
	delete(s.byUser, userID)
	s.mu.Unlock()
}

// InvalidateOn clears the whole cache when any of signals is published.
func (s *BorrowStore) InvalidateOn(bus *event.Bus, signals ...event.Signal) event.Group {
	group := make(event.Group, 0, len(signals))
	for _, sig := range signals {
		group = append(group, bus.Subscribe(sig, func(ctx context.Context) error {
			s.InvalidateAll()
			return nil
		}))
	}
	return group
}

// BorrowedBooks returns a snapshot of a user's cached loans and whether the
// user is cached at all.
func (s *BorrowStore) BorrowedBooks(userID domain.ID) ([]domain.BorrowRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.byUser[userID]
	if !ok {
		return nil, false
	}
	out := make([]domain.BorrowRecord, len(records))
	copy(out, records)
	return out, true
}

// Loading reports whether any fetch is in flight.
func (s *BorrowStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}
