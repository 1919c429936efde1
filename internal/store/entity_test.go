package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthorStore(repo *fakeAuthors) *EntityStore[domain.Author, domain.AuthorFields] {
	return NewEntityStore[domain.Author, domain.AuthorFields]("authors", repo, nil)
}

func TestFetchAllIsIdempotent(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"})
	s := newAuthorStore(repo)
	ctx := context.Background()

	assert.False(t, s.Loaded())
	require.NoError(t, s.FetchAll(ctx))
	require.NoError(t, s.FetchAll(ctx))

	assert.Equal(t, 1, repo.listCount())
	assert.True(t, s.Loaded())
	assert.False(t, s.Loading())
	assert.Equal(t, []domain.Author{{ID: 1, Name: "Ada"}}, s.Items())
}

func TestRefreshAlwaysReads(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"})
	s := newAuthorStore(repo)
	ctx := context.Background()

	require.NoError(t, s.FetchAll(ctx))
	repo.authors = append(repo.authors, domain.Author{ID: 2, Name: "Grace"})
	require.NoError(t, s.Refresh(ctx))

	assert.Equal(t, 2, repo.listCount())
	assert.Len(t, s.Items(), 2)
}

func TestFetchFailureLeavesStoreUnloaded(t *testing.T) {
	repo := newFakeAuthors()
	repo.listErr = errBoom
	s := newAuthorStore(repo)

	err := s.FetchAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, s.Loaded())
	assert.False(t, s.Loading())
	assert.Empty(t, s.Items())
}

func TestRefreshFailureKeepsItems(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"})
	s := newAuthorStore(repo)
	ctx := context.Background()

	require.NoError(t, s.FetchAll(ctx))
	repo.listErr = errBoom

	assert.ErrorIs(t, s.Refresh(ctx), errBoom)
	assert.True(t, s.Loaded())
	assert.Len(t, s.Items(), 1)
}

func TestCreateAppendsServerCopy(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"})
	s := newAuthorStore(repo)
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	created, err := s.Create(ctx, domain.AuthorFields{Name: "Grace"})
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, created, items[1])
	assert.Equal(t, 1, repo.listCount(), "create must not refetch without the option")
}

func TestCreateFailureLeavesCacheUnchanged(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"})
	repo.failOps["create"] = errBoom
	s := newAuthorStore(repo)
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	_, err := s.Create(ctx, domain.AuthorFields{Name: "Grace"})
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, s.Items(), 1)
}

func TestMutationsDoNotMarkLoaded(t *testing.T) {
	repo := newFakeAuthors()
	s := newAuthorStore(repo)

	_, err := s.Create(context.Background(), domain.AuthorFields{Name: "Grace"})
	require.NoError(t, err)
	assert.False(t, s.Loaded())
	assert.Len(t, s.Items(), 1)
}

func TestUpdateReplacesMatchingItem(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"}, domain.Author{ID: 2, Name: "Grace"})
	s := newAuthorStore(repo)
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	_, err := s.Update(ctx, 2, domain.AuthorFields{Name: "Grace Hopper"})
	require.NoError(t, err)

	got, ok := s.Get(2)
	require.True(t, ok)
	assert.Equal(t, "Grace Hopper", got.Name)
	assert.Equal(t, domain.ID(1), s.Items()[0].ID)
}

func TestDeleteMatchesStringID(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 7, Name: "Ada"}, domain.Author{ID: 8, Name: "Grace"})
	s := newAuthorStore(repo)
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	// The id arrives as a JSON string from a form or another endpoint.
	var id domain.ID
	require.NoError(t, json.Unmarshal([]byte(`"7"`), &id))

	require.NoError(t, s.Delete(ctx, id))
	assert.Equal(t, []domain.Author{{ID: 8, Name: "Grace"}}, s.Items())
}

func TestDeleteFailureLeavesCacheUnchanged(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"})
	repo.failOps["delete"] = errBoom
	s := newAuthorStore(repo)
	ctx := context.Background()
	require.NoError(t, s.FetchAll(ctx))

	assert.ErrorIs(t, s.Delete(ctx, 1), errBoom)
	assert.Len(t, s.Items(), 1)
}

func TestItemsReturnsSnapshot(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"})
	s := newAuthorStore(repo)
	require.NoError(t, s.FetchAll(context.Background()))

	items := s.Items()
	items[0].Name = "changed"
	got, _ := s.Get(1)
	assert.Equal(t, "Ada", got.Name)
}

func TestPatchAndReset(t *testing.T) {
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"})
	s := newAuthorStore(repo)
	require.NoError(t, s.FetchAll(context.Background()))

	assert.True(t, s.Patch(1, func(a *domain.Author) { a.Name = "Ada L." }))
	assert.False(t, s.Patch(9, func(a *domain.Author) {}))
	got, _ := s.Get(1)
	assert.Equal(t, "Ada L.", got.Name)

	s.Reset()
	assert.False(t, s.Loaded())
	assert.Empty(t, s.Items())
}

func TestRefetchAfterWriteFillsJoin(t *testing.T) {
	repo := &fakeBooks{authors: map[domain.ID]string{1: "Ada"}}
	s := NewEntityStore[domain.Book, domain.BookFields]("books", repo, nil, WithRefetchAfterWrite())
	ctx := context.Background()

	created, err := s.Create(ctx, domain.BookFields{Title: "Notes", AuthorID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Ada", created.AuthorName())
	assert.Equal(t, 1, repo.lists)

	updated, err := s.Update(ctx, created.ID, domain.BookFields{Title: "Notes 2", AuthorID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.AuthorName())
	assert.Equal(t, 2, repo.lists)
	assert.True(t, s.Loaded())
}

func TestRefetchFailureAfterWriteIsMarked(t *testing.T) {
	boom := errors.New("GET /books 503")
	repo := &fakeBooks{authors: map[domain.ID]string{1: "Ada"}, listErr: boom}
	s := NewEntityStore[domain.Book, domain.BookFields]("books", repo, nil, WithRefetchAfterWrite())
	ctx := context.Background()

	created, err := s.Create(ctx, domain.BookFields{Title: "Notes", AuthorID: 1})
	assert.ErrorIs(t, err, ErrRefetchFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Notes", created.Title)
	_, ok := s.Get(created.ID)
	assert.True(t, ok, "written item is cached")

	updated, err := s.Update(ctx, created.ID, domain.BookFields{Title: "Notes 2", AuthorID: 1})
	assert.ErrorIs(t, err, ErrRefetchFailed)
	assert.Equal(t, "Notes 2", updated.Title)
	assert.Len(t, repo.books, 1)
}

func TestRefreshOnOnlyWhenLoaded(t *testing.T) {
	bus := event.NewBus(nil)
	repo := newFakeAuthors(domain.Author{ID: 1, Name: "Ada"})
	s := newAuthorStore(repo)
	subs := s.RefreshOn(bus, event.AuthorsChanged)
	defer subs.Unsubscribe()
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, event.AuthorsChanged))
	assert.Equal(t, 0, repo.listCount(), "unloaded store must not refetch")

	require.NoError(t, s.FetchAll(ctx))
	require.NoError(t, bus.Publish(ctx, event.AuthorsChanged))
	assert.Equal(t, 2, repo.listCount())

	repo.listErr = errBoom
	assert.ErrorIs(t, bus.Publish(ctx, event.AuthorsChanged), errBoom)
}
