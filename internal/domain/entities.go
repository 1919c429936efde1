package domain

import (
	"strings"
)

// UnknownAuthor is shown when a book's author cannot be resolved.
const UnknownAuthor = "Unknown"

// Entity is anything cached by an entity store.
type Entity interface {
	GetID() ID
}

// Author represents a book author
type Author struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

func (a Author) GetID() ID { return a.ID }

// Book represents a catalog entry. Author is the server-side join and is
// only populated on list responses.
type Book struct {
	ID         ID      `json:"id"`
	Title      string  `json:"title"`
	AuthorID   ID      `json:"author_id"`
	IsBorrowed bool    `json:"is_borrowed"`
	Author     *Author `json:"Authors,omitempty"`
}

func (b Book) GetID() ID { return b.ID }

// AuthorName returns the joined author name, or "" when the join is absent.
func (b Book) AuthorName() string {
	if b.Author == nil {
		return ""
	}
	return b.Author.Name
}

// Status returns a display status for the book
func (b Book) Status() string {
	if b.IsBorrowed {
		return "Borrowed"
	}
	return "Available"
}

// User represents a library member
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) GetID() ID { return u.ID }

// BookSnapshot is the book data embedded in a borrow record.
type BookSnapshot struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// BorrowRecord is one loan of a book to a user.
type BorrowRecord struct {
	ID         ID            `json:"id"`
	UserID     ID            `json:"user_id"`
	BookID     ID            `json:"book_id"`
	BorrowedAt Timestamp     `json:"borrowed_at"`
	ReturnedAt *Timestamp    `json:"returned_at,omitempty"`
	Book       *BookSnapshot `json:"Books,omitempty"`
}

func (r BorrowRecord) GetID() ID { return r.ID }

// Active reports whether the loan is still open
func (r BorrowRecord) Active() bool {
	return r.ReturnedAt == nil
}

// BookTitle returns the embedded book title, or "" when absent.
func (r BorrowRecord) BookTitle() string {
	if r.Book == nil {
		return ""
	}
	return r.Book.Title
}

// AuthorFields is the write payload for authors
type AuthorFields struct {
	Name string `json:"name"`
}

func (f AuthorFields) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Field: "name"}
	}
	return nil
}

// BookFields is the write payload for books
type BookFields struct {
	Title    string `json:"title"`
	AuthorID ID     `json:"author_id"`
}

func (f BookFields) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return &ValidationError{Field: "title"}
	}
	if f.AuthorID == 0 {
		return &ValidationError{Field: "author"}
	}
	return nil
}

// UserFields is the write payload for users
type UserFields struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (f UserFields) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Field: "name"}
	}
	if strings.TrimSpace(f.Email) == "" {
		return &ValidationError{Field: "email"}
	}
	return nil
}
