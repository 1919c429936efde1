package library

import (
	"context"

	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/event"
)

// === Loads ===

// LoadAuthors fetches authors unless already cached.
func (s *Service) LoadAuthors(ctx context.Context) error {
	return s.Authors.FetchAll(ctx)
}

// LoadBooks fetches books and the authors their rows refer to.
func (s *Service) LoadBooks(ctx context.Context) error {
	if err := s.Authors.FetchAll(ctx); err != nil {
		return err
	}
	return s.Books.FetchAll(ctx)
}

// LoadUsers fetches users unless already cached.
func (s *Service) LoadUsers(ctx context.Context) error {
	return s.Users.FetchAll(ctx)
}

// LoadBorrowPage fetches what the borrow page lists: users and books.
func (s *Service) LoadBorrowPage(ctx context.Context) error {
	if err := s.Users.FetchAll(ctx); err != nil {
		return err
	}
	return s.Books.FetchAll(ctx)
}

// LoadLoans fetches a user's active loans unless already cached.
func (s *Service) LoadLoans(ctx context.Context, userID domain.ID) error {
	return s.Borrows.FetchForUser(ctx, userID)
}

// === Authors ===

func (s *Service) AddAuthor(ctx context.Context, fields domain.AuthorFields) (domain.Author, error) {
	a, err := s.Authors.Create(ctx, fields)
	if err != nil {
		return a, err
	}
	return a, s.publish(ctx, event.AuthorsChanged)
}

func (s *Service) UpdateAuthor(ctx context.Context, id domain.ID, fields domain.AuthorFields) (domain.Author, error) {
	a, err := s.Authors.Update(ctx, id, fields)
	if err != nil {
		return a, err
	}
	return a, s.publish(ctx, event.AuthorsChanged)
}

func (s *Service) DeleteAuthor(ctx context.Context, id domain.ID) error {
	if err := s.Authors.Delete(ctx, id); err != nil {
		return err
	}
	return s.publish(ctx, event.AuthorsChanged)
}

// === Books ===

func (s *Service) AddBook(ctx context.Context, fields domain.BookFields) (domain.Book, error) {
	b, err := s.Books.Create(ctx, fields)
	if !written(err) {
		return b, err
	}
	return b, s.settle(ctx, event.BooksChanged, err)
}

func (s *Service) UpdateBook(ctx context.Context, id domain.ID, fields domain.BookFields) (domain.Book, error) {
	b, err := s.Books.Update(ctx, id, fields)
	if !written(err) {
		return b, err
	}
	return b, s.settle(ctx, event.BooksChanged, err)
}

func (s *Service) DeleteBook(ctx context.Context, id domain.ID) error {
	if err := s.Books.Delete(ctx, id); err != nil {
		return err
	}
	return s.publish(ctx, event.BooksChanged)
}

// === Users ===

func (s *Service) AddUser(ctx context.Context, fields domain.UserFields) (domain.User, error) {
	u, err := s.Users.Create(ctx, fields)
	if err != nil {
		return u, err
	}
	return u, s.publish(ctx, event.UsersChanged)
}

func (s *Service) UpdateUser(ctx context.Context, id domain.ID, fields domain.UserFields) (domain.User, error) {
	u, err := s.Users.Update(ctx, id, fields)
	if err != nil {
		return u, err
	}
	return u, s.publish(ctx, event.UsersChanged)
}

// DeleteUser removes a user. The server closes the user's loans, so the
// books they held become available again.
func (s *Service) DeleteUser(ctx context.Context, id domain.ID) error {
	if err := s.Users.Delete(ctx, id); err != nil {
		return err
	}
	s.Borrows.Evict(id)
	var staleErr error
	if s.Books.Loaded() {
		staleErr = s.Books.Refresh(ctx)
	}
	return s.settle(ctx, event.UsersChanged, staleErr)
}

// === Loans ===

// BorrowBook lends a book and marks it borrowed in the book cache.
func (s *Service) BorrowBook(ctx context.Context, userID, bookID domain.ID) error {
	return s.Borrows.Borrow(ctx, userID, bookID, func() {
		s.Books.Patch(bookID, func(b *domain.Book) { b.IsBorrowed = true })
	})
}

// ReturnBook closes a loan and marks the book available in the book cache.
func (s *Service) ReturnBook(ctx context.Context, bookID, userID domain.ID) error {
	return s.Borrows.ReturnBook(ctx, bookID, userID, func() {
		s.Books.Patch(bookID, func(b *domain.Book) { b.IsBorrowed = false })
	})
}
