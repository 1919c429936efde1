package tui

import (
	"github.com/mmcdole/libraryhub/internal/domain"
)

// Message types for the TUI

// ErrMsg represents a failed load
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// PageLoadedMsg signals that the stores behind a page are loaded
type PageLoadedMsg struct {
	Page Page
}

// LoansLoadedMsg signals that a user's active loans are cached
type LoansLoadedMsg struct {
	UserID domain.ID
}

// MutationDoneMsg reports the end of a page submission
type MutationDoneMsg struct {
	Page Page
	Verb string // "added", "updated", "deleted", "borrowed", "returned"
	Err  error
}

// LoginDoneMsg reports the result of a login attempt
type LoginDoneMsg struct {
	Email string
	Err   error
}

// LogoutDoneMsg signals that the session and caches were cleared
type LogoutDoneMsg struct {
	Err error
}

// ClearStatusMsg clears the footer status
type ClearStatusMsg struct{}

// TickMsg advances the spinner
type TickMsg struct{}
