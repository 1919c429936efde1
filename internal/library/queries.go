package library

import (
	"github.com/mmcdole/libraryhub/internal/domain"
)

// AuthorLabel returns the name to show for a book's author: the server join
// when present, else the cached author, else "Unknown".
func (s *Service) AuthorLabel(b domain.Book) string {
	if name := b.AuthorName(); name != "" {
		return name
	}
	if a, ok := s.Authors.Get(b.AuthorID); ok && a.Name != "" {
		return a.Name
	}
	return domain.UnknownAuthor
}

// AvailableBooks returns the cached books that are not on loan.
func (s *Service) AvailableBooks() []domain.Book {
	var out []domain.Book
	for _, b := range s.Books.Items() {
		if !b.IsBorrowed {
			out = append(out, b)
		}
	}
	return out
}

// LoanTitle returns the title for a borrow record, falling back to the book
// cache and then to the book id.
func (s *Service) LoanTitle(rec domain.BorrowRecord) string {
	if title := rec.BookTitle(); title != "" {
		return title
	}
	if b, ok := s.Books.Get(rec.BookID); ok {
		return b.Title
	}
	return "Book #" + rec.BookID.String()
}

// Loans returns a user's cached loans; ok is false when they are not loaded.
func (s *Service) Loans(userID domain.ID) ([]domain.BorrowRecord, bool) {
	return s.Borrows.BorrowedBooks(userID)
}

// UserName returns the cached user's name, or "User #id" when unknown.
func (s *Service) UserName(id domain.ID) string {
	if u, ok := s.Users.Get(id); ok && u.Name != "" {
		return u.Name
	}
	return "User #" + id.String()
}
