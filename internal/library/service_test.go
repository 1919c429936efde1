package library

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/libraryhub/internal/api"
	"github.com/mmcdole/libraryhub/internal/config"
	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/event"
	"github.com/mmcdole/libraryhub/internal/mockapi"
	"github.com/mmcdole/libraryhub/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	mock    *mockapi.Server
	svc     *Service
	session *SessionService
	tokens  *session.Store
	bus     *event.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithBooks(t, nil)
}

// failingList passes writes through to the server and fails List while
// failing is set
type failingList struct {
	domain.BookRepository
	failing atomic.Bool
}

func (r *failingList) List(ctx context.Context) ([]domain.Book, error) {
	if r.failing.Load() {
		return nil, errors.New("GET /books 503")
	}
	return r.BookRepository.List(ctx)
}

// newFixtureWithBooks lets wrap replace the Books repository
func newFixtureWithBooks(t *testing.T, wrap func(domain.BookRepository) domain.BookRepository) *fixture {
	t.Helper()

	mock := mockapi.New(mockapi.Config{AdminEmail: "admin@example.com", AdminPassword: "pw", Token: "tok"}, nil)
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)

	tokens, err := session.Open("")
	require.NoError(t, err)

	client := api.New(config.ServerConfig{URL: srv.URL, Timeout: 2 * time.Second}, tokens, nil)
	bus := event.NewBus(nil)
	var books domain.BookRepository = client.Books()
	if wrap != nil {
		books = wrap(books)
	}
	svc := NewService(Repositories{
		Authors: client.Authors(),
		Books:   books,
		Users:   client.Users(),
		Loans:   client.Loans(),
	}, bus, nil)
	t.Cleanup(svc.Close)

	sess := NewSessionService(client, tokens, svc, nil)
	require.NoError(t, sess.Login(context.Background(), "admin@example.com", "pw"))

	return &fixture{mock: mock, svc: svc, session: sess, tokens: tokens, bus: bus}
}

func TestLoadBooksFetchesOnce(t *testing.T) {
	f := newFixture(t)
	ada := f.mock.AddAuthor("Ada")
	f.mock.AddBook("Notes", ada.ID)
	ctx := context.Background()

	require.NoError(t, f.svc.LoadBooks(ctx))
	require.NoError(t, f.svc.LoadBooks(ctx))

	assert.Equal(t, 1, f.mock.Hits("GET /books"))
	assert.Equal(t, 1, f.mock.Hits("GET /authors"))
	books := f.svc.Books.Items()
	require.Len(t, books, 1)
	assert.Equal(t, "Ada", f.svc.AuthorLabel(books[0]))
}

func TestAddAuthorRefreshesLoadedBooksAndClearsLoans(t *testing.T) {
	f := newFixture(t)
	ada := f.mock.AddAuthor("Ada")
	notes := f.mock.AddBook("Notes", ada.ID)
	alan := f.mock.AddUser("Alan", "alan@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.LoadBooks(ctx))
	require.NoError(t, f.svc.LoadLoans(ctx, alan.ID))

	grace, err := f.svc.AddAuthor(ctx, domain.AuthorFields{Name: "Grace"})
	require.NoError(t, err)

	authors := f.svc.Authors.Items()
	require.Len(t, authors, 2)
	assert.Equal(t, []domain.Author{ada, grace}, authors)

	assert.Equal(t, 2, f.mock.Hits("GET /books"), "books refresh on authorsChanged")
	_, ok := f.svc.Loans(alan.ID)
	assert.False(t, ok, "loan cache cleared on authorsChanged")

	book, ok := f.svc.Books.Get(notes.ID)
	require.True(t, ok)
	assert.Equal(t, "Ada", f.svc.AuthorLabel(book))
}

func TestAuthorsChangedSkipsUnloadedBooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddAuthor(ctx, domain.AuthorFields{Name: "Grace"})
	require.NoError(t, err)
	assert.Equal(t, 0, f.mock.Hits("GET /books"))
}

func TestDeleteAuthorShowsUnknown(t *testing.T) {
	f := newFixture(t)
	ada := f.mock.AddAuthor("Ada")
	notes := f.mock.AddBook("Notes", ada.ID)
	ctx := context.Background()
	require.NoError(t, f.svc.LoadBooks(ctx))

	require.NoError(t, f.svc.DeleteAuthor(ctx, ada.ID))

	assert.Empty(t, f.svc.Authors.Items())
	book, ok := f.svc.Books.Get(notes.ID)
	require.True(t, ok)
	assert.Equal(t, domain.UnknownAuthor, f.svc.AuthorLabel(book))
}

func TestUpdateAuthorMatchesStringIDResponse(t *testing.T) {
	f := newFixture(t)
	ada := f.mock.AddAuthor("Ada")
	ctx := context.Background()
	require.NoError(t, f.svc.LoadAuthors(ctx))

	// The mock answers updates with the id as a JSON string.
	updated, err := f.svc.UpdateAuthor(ctx, ada.ID, domain.AuthorFields{Name: "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, ada.ID, updated.ID)

	authors := f.svc.Authors.Items()
	require.Len(t, authors, 1)
	assert.Equal(t, "Ada Lovelace", authors[0].Name)
}

func TestAddBookRefetchesJoin(t *testing.T) {
	f := newFixture(t)
	ada := f.mock.AddAuthor("Ada")
	alan := f.mock.AddUser("Alan", "alan@example.com")
	ctx := context.Background()
	require.NoError(t, f.svc.LoadBooks(ctx))
	require.NoError(t, f.svc.LoadLoans(ctx, alan.ID))

	book, err := f.svc.AddBook(ctx, domain.BookFields{Title: "Notes", AuthorID: ada.ID})
	require.NoError(t, err)

	assert.Equal(t, "Ada", book.AuthorName())
	assert.Equal(t, 2, f.mock.Hits("GET /books"))
	_, ok := f.svc.Loans(alan.ID)
	assert.False(t, ok, "loan cache cleared on booksChanged")
}

func TestBorrowAndReturn(t *testing.T) {
	f := newFixture(t)
	ada := f.mock.AddAuthor("Ada")
	notes := f.mock.AddBook("Notes", ada.ID)
	other := f.mock.AddBook("Sketches", ada.ID)
	alan := f.mock.AddUser("Alan", "alan@example.com")
	ctx := context.Background()
	require.NoError(t, f.svc.LoadBorrowPage(ctx))
	require.NoError(t, f.svc.LoadLoans(ctx, alan.ID))
	assert.Len(t, f.svc.AvailableBooks(), 2)

	require.NoError(t, f.svc.BorrowBook(ctx, alan.ID, notes.ID))

	book, _ := f.svc.Books.Get(notes.ID)
	assert.True(t, book.IsBorrowed)
	assert.Equal(t, []domain.Book{{ID: other.ID, Title: "Sketches", AuthorID: ada.ID, Author: &ada}}, f.svc.AvailableBooks())
	assert.Equal(t, 1, f.mock.Hits("GET /books"), "borrow patches locally")

	loans, ok := f.svc.Loans(alan.ID)
	require.True(t, ok)
	require.Len(t, loans, 1)
	assert.Equal(t, notes.ID, loans[0].BookID)
	assert.Equal(t, "Notes", f.svc.LoanTitle(loans[0]))
	loanReads := f.mock.Hits("GET /borrow/user/:id")

	require.NoError(t, f.svc.ReturnBook(ctx, notes.ID, alan.ID))

	loans, ok = f.svc.Loans(alan.ID)
	require.True(t, ok)
	assert.Empty(t, loans)
	book, _ = f.svc.Books.Get(notes.ID)
	assert.False(t, book.IsBorrowed)
	assert.Equal(t, loanReads, f.mock.Hits("GET /borrow/user/:id"), "return does not refetch")
}

func TestBorrowConflictLeavesCachesAlone(t *testing.T) {
	f := newFixture(t)
	ada := f.mock.AddAuthor("Ada")
	notes := f.mock.AddBook("Notes", ada.ID)
	alan := f.mock.AddUser("Alan", "alan@example.com")
	kate := f.mock.AddUser("Katherine", "kate@example.com")
	ctx := context.Background()
	require.NoError(t, f.svc.LoadBorrowPage(ctx))
	require.NoError(t, f.svc.BorrowBook(ctx, alan.ID, notes.ID))
	require.NoError(t, f.svc.LoadLoans(ctx, kate.ID))

	err := f.svc.BorrowBook(ctx, kate.ID, notes.ID)
	require.Error(t, err)
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 409, apiErr.StatusCode)

	loans, ok := f.svc.Loans(kate.ID)
	assert.True(t, ok)
	assert.Empty(t, loans)
}

func TestDeleteUserFreesBooks(t *testing.T) {
	f := newFixture(t)
	ada := f.mock.AddAuthor("Ada")
	notes := f.mock.AddBook("Notes", ada.ID)
	alan := f.mock.AddUser("Alan", "alan@example.com")
	ctx := context.Background()
	require.NoError(t, f.svc.LoadBorrowPage(ctx))
	require.NoError(t, f.svc.BorrowBook(ctx, alan.ID, notes.ID))

	require.NoError(t, f.svc.DeleteUser(ctx, alan.ID))

	assert.Empty(t, f.svc.Users.Items())
	_, ok := f.svc.Loans(alan.ID)
	assert.False(t, ok)
	book, _ := f.svc.Books.Get(notes.ID)
	assert.False(t, book.IsBorrowed)
}

func TestAddUserPublishesUsersChanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	got := 0
	sub := f.bus.Subscribe(event.UsersChanged, func(ctx context.Context) error {
		got++
		return nil
	})
	defer sub.Unsubscribe()

	_, err := f.svc.AddUser(ctx, domain.UserFields{Name: "Alan", Email: "alan@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Len(t, f.svc.Users.Items(), 1)
}

func TestDependentRefreshFailureIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("view refresh failed")
	sub := f.bus.Subscribe(event.AuthorsChanged, func(ctx context.Context) error { return boom })
	defer sub.Unsubscribe()

	a, err := f.svc.AddAuthor(ctx, domain.AuthorFields{Name: "Grace"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.ErrorIs(t, err, boom)

	got, ok := f.svc.Authors.Get(a.ID)
	require.True(t, ok, "the write still took effect")
	assert.Equal(t, "Grace", got.Name)
}

func TestFetchFailureWithoutSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Logout())
	assert.False(t, f.session.LoggedIn())

	err := f.svc.LoadUsers(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.False(t, f.svc.Users.Loaded())
	assert.False(t, f.svc.Users.Loading())
}

func TestLogoutClearsCaches(t *testing.T) {
	f := newFixture(t)
	f.mock.AddAuthor("Ada")
	ctx := context.Background()
	require.NoError(t, f.svc.LoadAuthors(ctx))
	assert.Equal(t, "admin@example.com", f.session.Email())

	require.NoError(t, f.session.Logout())

	assert.Empty(t, f.tokens.Token())
	assert.False(t, f.svc.Authors.Loaded())
	assert.Empty(t, f.svc.Authors.Items())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Logout())

	err := f.session.Login(context.Background(), "admin@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.False(t, f.session.LoggedIn())
}

func TestAuthorLabelFallsBackToAuthorCache(t *testing.T) {
	f := newFixture(t)
	ada := f.mock.AddAuthor("Ada")
	require.NoError(t, f.svc.LoadAuthors(context.Background()))

	assert.Equal(t, "Ada", f.svc.AuthorLabel(domain.Book{AuthorID: ada.ID}))
	assert.Equal(t, domain.UnknownAuthor, f.svc.AuthorLabel(domain.Book{AuthorID: 999}))
}

func TestUserNameFallsBackToID(t *testing.T) {
	f := newFixture(t)
	grace := f.mock.AddUser("Grace", "grace@example.com")
	require.NoError(t, f.svc.LoadUsers(context.Background()))

	assert.Equal(t, "Grace", f.svc.UserName(grace.ID))
	assert.Equal(t, "User #42", f.svc.UserName(42))
}

// === Writes whose reload fails ===

func newFlakyBooksFixture(t *testing.T) (*fixture, *failingList) {
	t.Helper()
	repo := &failingList{}
	f := newFixtureWithBooks(t, func(inner domain.BookRepository) domain.BookRepository {
		repo.BookRepository = inner
		return repo
	})
	return f, repo
}

func TestAddBookReloadFailureIsSyncFailure(t *testing.T) {
	f, repo := newFlakyBooksFixture(t)
	ada := f.mock.AddAuthor("Ada")
	alan := f.mock.AddUser("Alan", "alan@example.com")
	ctx := context.Background()
	require.NoError(t, f.svc.LoadBooks(ctx))
	require.NoError(t, f.svc.LoadLoans(ctx, alan.ID))

	published := 0
	sub := f.bus.Subscribe(event.BooksChanged, func(ctx context.Context) error {
		published++
		return nil
	})
	defer sub.Unsubscribe()

	repo.failing.Store(true)
	book, err := f.svc.AddBook(ctx, domain.BookFields{Title: "Notes", AuthorID: ada.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.Equal(t, 1, f.mock.Hits("POST /books"), "created once on the server")

	_, ok := f.svc.Books.Get(book.ID)
	assert.True(t, ok, "created book stays cached")
	assert.Equal(t, 1, published)
	_, ok = f.svc.Loans(alan.ID)
	assert.False(t, ok, "loan cache cleared on booksChanged")
}

func TestUpdateBookReloadFailureIsSyncFailure(t *testing.T) {
	f, repo := newFlakyBooksFixture(t)
	ada := f.mock.AddAuthor("Ada")
	notes := f.mock.AddBook("Notes", ada.ID)
	alan := f.mock.AddUser("Alan", "alan@example.com")
	ctx := context.Background()
	require.NoError(t, f.svc.LoadBooks(ctx))
	require.NoError(t, f.svc.LoadLoans(ctx, alan.ID))

	repo.failing.Store(true)
	_, err := f.svc.UpdateBook(ctx, notes.ID, domain.BookFields{Title: "Notes, 2nd ed.", AuthorID: ada.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncFailed)

	got, _ := f.svc.Books.Get(notes.ID)
	assert.Equal(t, "Notes, 2nd ed.", got.Title)
	_, ok := f.svc.Loans(alan.ID)
	assert.False(t, ok, "loan cache cleared on booksChanged")
}

func TestDeleteUserReloadFailureIsSyncFailure(t *testing.T) {
	f, repo := newFlakyBooksFixture(t)
	ada := f.mock.AddAuthor("Ada")
	f.mock.AddBook("Notes", ada.ID)
	alan := f.mock.AddUser("Alan", "alan@example.com")
	ctx := context.Background()
	require.NoError(t, f.svc.LoadBorrowPage(ctx))
	require.NoError(t, f.svc.LoadLoans(ctx, alan.ID))

	published := 0
	sub := f.bus.Subscribe(event.UsersChanged, func(ctx context.Context) error {
		published++
		return nil
	})
	defer sub.Unsubscribe()

	repo.failing.Store(true)
	err := f.svc.DeleteUser(ctx, alan.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncFailed)

	assert.Empty(t, f.svc.Users.Items())
	_, ok := f.svc.Loans(alan.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, published, "usersChanged still published")
}

func TestAddBookServerFailureIsNotSyncFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBook(ctx, domain.BookFields{Title: "Orphan", AuthorID: 999})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSyncFailed)
}
