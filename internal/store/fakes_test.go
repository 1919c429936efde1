package store

import (
	"context"
	"errors"
	"sync"

	"github.com/mmcdole/libraryhub/internal/domain"
)

var errBoom = errors.New("boom")

// fakeAuthors is an in-memory AuthorRepository that counts calls.
type fakeAuthors struct {
	mu      sync.Mutex
	authors []domain.Author
	nextID  domain.ID

	lists   int
	listErr error
	failOps map[string]error
}

func newFakeAuthors(authors ...domain.Author) *fakeAuthors {
	f := &fakeAuthors{authors: authors, nextID: 100, failOps: map[string]error{}}
	return f
}

func (f *fakeAuthors) List(ctx context.Context) ([]domain.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Author, len(f.authors))
	copy(out, f.authors)
	return out, nil
}

func (f *fakeAuthors) Create(ctx context.Context, fields domain.AuthorFields) (domain.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOps["create"]; err != nil {
		return domain.Author{}, err
	}
	f.nextID++
	a := domain.Author{ID: f.nextID, Name: fields.Name}
	f.authors = append(f.authors, a)
	return a, nil
}

func (f *fakeAuthors) Update(ctx context.Context, id domain.ID, fields domain.AuthorFields) (domain.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOps["update"]; err != nil {
		return domain.Author{}, err
	}
	for i := range f.authors {
		if f.authors[i].ID == id {
			f.authors[i].Name = fields.Name
			return f.authors[i], nil
		}
	}
	return domain.Author{}, &domain.APIError{Method: "PUT", StatusCode: 404}
}

func (f *fakeAuthors) Delete(ctx context.Context, id domain.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOps["delete"]; err != nil {
		return err
	}
	kept := f.authors[:0]
	for _, a := range f.authors {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.authors = kept
	return nil
}

func (f *fakeAuthors) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// fakeBooks returns books whose create response lacks the author join,
// while List fills it in.
type fakeBooks struct {
	mu      sync.Mutex
	books   []domain.Book
	authors map[domain.ID]string
	lists   int
	listErr error
}

func (f *fakeBooks) joined(b domain.Book) domain.Book {
	if name, ok := f.authors[b.AuthorID]; ok {
		b.Author = &domain.Author{ID: b.AuthorID, Name: name}
	}
	return b
}

func (f *fakeBooks) List(ctx context.Context) ([]domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Book, 0, len(f.books))
	for _, b := range f.books {
		out = append(out, f.joined(b))
	}
	return out, nil
}

func (f *fakeBooks) Create(ctx context.Context, fields domain.BookFields) (domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := domain.Book{ID: domain.ID(len(f.books) + 1), Title: fields.Title, AuthorID: fields.AuthorID}
	f.books = append(f.books, b)
	return b, nil
}

func (f *fakeBooks) Update(ctx context.Context, id domain.ID, fields domain.BookFields) (domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.books {
		if f.books[i].ID == id {
			f.books[i].Title = fields.Title
			f.books[i].AuthorID = fields.AuthorID
			return f.books[i], nil
		}
	}
	return domain.Book{}, &domain.APIError{StatusCode: 404}
}

func (f *fakeBooks) Delete(ctx context.Context, id domain.ID) error {
	return nil
}

// fakeLoans is an in-memory BorrowRepository.
type fakeLoans struct {
	mu      sync.Mutex
	records []domain.BorrowRecord
	lists   map[domain.ID]int

	borrowErr error
	returnErr error
	listErr   error
}

func newFakeLoans(records ...domain.BorrowRecord) *fakeLoans {
	return &fakeLoans{records: records, lists: map[domain.ID]int{}}
}

func (f *fakeLoans) ListForUser(ctx context.Context, userID domain.ID) ([]domain.BorrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[userID]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.BorrowRecord
	for _, r := range f.records {
		if r.UserID == userID && r.Active() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLoans) Borrow(ctx context.Context, userID, bookID domain.ID) (domain.BorrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.borrowErr != nil {
		return domain.BorrowRecord{}, f.borrowErr
	}
	rec := domain.BorrowRecord{ID: domain.ID(len(f.records) + 1), UserID: userID, BookID: bookID}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeLoans) Return(ctx context.Context, bookID domain.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.returnErr != nil {
		return f.returnErr
	}
	kept := f.records[:0]
	for _, r := range f.records {
		if r.BookID != bookID {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return nil
}

func (f *fakeLoans) listCount(userID domain.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists[userID]
}
