package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/library"
)

// Command factories for async operations

// commandTimeout bounds every store call issued from the UI so a hung
// request eventually clears the page's loading or submitting state.
const commandTimeout = 30 * time.Second

// LoadPageCmd fetches whatever the page lists, reusing cached stores
func LoadPageCmd(svc *library.Service, page Page) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		var err error
		switch page {
		case PageAuthors:
			err = svc.LoadAuthors(ctx)
		case PageBooks:
			err = svc.LoadBooks(ctx)
		case PageUsers:
			err = svc.LoadUsers(ctx)
		case PageBorrow:
			err = svc.LoadBorrowPage(ctx)
		}
		if err != nil {
			return ErrMsg{Err: err, Context: "loading " + page.String()}
		}
		return PageLoadedMsg{Page: page}
	}
}

// RefreshPageCmd refetches the page's primary store
func RefreshPageCmd(svc *library.Service, page Page) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		var err error
		switch page {
		case PageAuthors:
			err = svc.Authors.Refresh(ctx)
		case PageBooks:
			if err = svc.Authors.Refresh(ctx); err == nil {
				err = svc.Books.Refresh(ctx)
			}
		case PageUsers:
			err = svc.Users.Refresh(ctx)
		case PageBorrow:
			if err = svc.Users.Refresh(ctx); err == nil {
				err = svc.Books.Refresh(ctx)
			}
		}
		if err != nil {
			return ErrMsg{Err: err, Context: "refreshing " + page.String()}
		}
		return PageLoadedMsg{Page: page}
	}
}

// LoadLoansCmd fetches a user's active loans unless cached
func LoadLoansCmd(svc *library.Service, userID domain.ID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := svc.LoadLoans(ctx, userID); err != nil {
			return ErrMsg{Err: err, Context: "loading loans"}
		}
		return LoansLoadedMsg{UserID: userID}
	}
}

// mutationCmd runs one page submission and reports it as MutationDoneMsg
func mutationCmd(page Page, verb string, run func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		return MutationDoneMsg{Page: page, Verb: verb, Err: run(ctx)}
	}
}

// SaveAuthorCmd creates an author, or updates it when id is set
func SaveAuthorCmd(svc *library.Service, id domain.ID, fields domain.AuthorFields) tea.Cmd {
	if id == 0 {
		return mutationCmd(PageAuthors, "added", func(ctx context.Context) error {
			_, err := svc.AddAuthor(ctx, fields)
			return err
		})
	}
	return mutationCmd(PageAuthors, "updated", func(ctx context.Context) error {
		_, err := svc.UpdateAuthor(ctx, id, fields)
		return err
	})
}

// DeleteAuthorCmd deletes an author
func DeleteAuthorCmd(svc *library.Service, id domain.ID) tea.Cmd {
	return mutationCmd(PageAuthors, "deleted", func(ctx context.Context) error {
		return svc.DeleteAuthor(ctx, id)
	})
}

// SaveBookCmd creates a book, or updates it when id is set
func SaveBookCmd(svc *library.Service, id domain.ID, fields domain.BookFields) tea.Cmd {
	if id == 0 {
		return mutationCmd(PageBooks, "added", func(ctx context.Context) error {
			_, err := svc.AddBook(ctx, fields)
			return err
		})
	}
	return mutationCmd(PageBooks, "updated", func(ctx context.Context) error {
		_, err := svc.UpdateBook(ctx, id, fields)
		return err
	})
}

// DeleteBookCmd deletes a book
func DeleteBookCmd(svc *library.Service, id domain.ID) tea.Cmd {
	return mutationCmd(PageBooks, "deleted", func(ctx context.Context) error {
		return svc.DeleteBook(ctx, id)
	})
}

// SaveUserCmd creates a user, or updates it when id is set
func SaveUserCmd(svc *library.Service, id domain.ID, fields domain.UserFields) tea.Cmd {
	if id == 0 {
		return mutationCmd(PageUsers, "added", func(ctx context.Context) error {
			_, err := svc.AddUser(ctx, fields)
			return err
		})
	}
	return mutationCmd(PageUsers, "updated", func(ctx context.Context) error {
		_, err := svc.UpdateUser(ctx, id, fields)
		return err
	})
}

// DeleteUserCmd deletes a user
func DeleteUserCmd(svc *library.Service, id domain.ID) tea.Cmd {
	return mutationCmd(PageUsers, "deleted", func(ctx context.Context) error {
		return svc.DeleteUser(ctx, id)
	})
}

// BorrowCmd lends a book to a user
func BorrowCmd(svc *library.Service, userID, bookID domain.ID) tea.Cmd {
	return mutationCmd(PageBorrow, "borrowed", func(ctx context.Context) error {
		return svc.BorrowBook(ctx, userID, bookID)
	})
}

// ReturnCmd closes the loan on a book
func ReturnCmd(svc *library.Service, bookID, userID domain.ID) tea.Cmd {
	return mutationCmd(PageBorrow, "returned", func(ctx context.Context) error {
		return svc.ReturnBook(ctx, bookID, userID)
	})
}

// LoginCmd exchanges credentials for a session token
func LoginCmd(sess *library.SessionService, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		return LoginDoneMsg{Email: email, Err: sess.Login(ctx, email, password)}
	}
}

// LogoutCmd clears the session and every cache
func LogoutCmd(sess *library.SessionService) tea.Cmd {
	return func() tea.Msg {
		return LogoutDoneMsg{Err: sess.Logout()}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
