package tui

import (
	"strings"

	"github.com/mmcdole/libraryhub/internal/domain"
)

// Page is one of the console's screens
type Page int

const (
	PageAuthors Page = iota
	PageBooks
	PageUsers
	PageBorrow
)

const pageCount = 4

var pageOrder = [pageCount]Page{PageAuthors, PageBooks, PageUsers, PageBorrow}

func (p Page) String() string {
	switch p {
	case PageAuthors:
		return "Authors"
	case PageBooks:
		return "Books"
	case PageUsers:
		return "Users"
	case PageBorrow:
		return "Borrow"
	default:
		return "Unknown"
	}
}

// noun is the singular entity name used in status messages
func (p Page) noun() string {
	switch p {
	case PageAuthors:
		return "author"
	case PageBooks:
		return "book"
	case PageUsers:
		return "user"
	default:
		return "book"
	}
}

// ParsePage parses a page name from configuration
func ParsePage(s string) (Page, bool) {
	for _, p := range pageOrder {
		if strings.EqualFold(p.String(), strings.TrimSpace(s)) {
			return p, true
		}
	}
	return PageBooks, false
}

func (p Page) next() Page {
	return pageOrder[(int(p)+1)%len(pageOrder)]
}

func (p Page) prev() Page {
	return pageOrder[(int(p)+len(pageOrder)-1)%len(pageOrder)]
}

// Phase is where a page is in its mutation flow
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEditing
	PhaseConfirmDelete
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEditing:
		return "editing"
	case PhaseConfirmDelete:
		return "confirm-delete"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// PageState tracks one page's mutation flow:
//
//	idle -> submitting -> idle
//	idle -> editing(id) -> submitting | idle
//	idle -> confirm-delete(id) -> submitting | idle
type PageState struct {
	Phase     Phase
	EditingID domain.ID
	PendingID domain.ID
}

// StartEdit enters editing for id. Only allowed from idle.
func (s *PageState) StartEdit(id domain.ID) bool {
	if s.Phase != PhaseIdle {
		return false
	}
	s.Phase = PhaseEditing
	s.EditingID = id
	return true
}

// CancelEdit discards an edit in progress
func (s *PageState) CancelEdit() {
	if s.Phase == PhaseEditing {
		s.reset()
	}
}

// AskDelete requests confirmation before deleting id. Only allowed from idle.
func (s *PageState) AskDelete(id domain.ID) bool {
	if s.Phase != PhaseIdle {
		return false
	}
	s.Phase = PhaseConfirmDelete
	s.PendingID = id
	return true
}

// Decline abandons a pending delete; nothing else changes
func (s *PageState) Decline() {
	if s.Phase == PhaseConfirmDelete {
		s.reset()
	}
}

// Submit enters submitting. It fails when a submission is already running.
func (s *PageState) Submit() bool {
	if s.Phase == PhaseSubmitting {
		return false
	}
	s.Phase = PhaseSubmitting
	return true
}

// Finish ends a submission, successful or not
func (s *PageState) Finish() {
	s.reset()
}

// Busy reports whether a submission is running
func (s PageState) Busy() bool {
	return s.Phase == PhaseSubmitting
}

func (s *PageState) reset() {
	*s = PageState{}
}
