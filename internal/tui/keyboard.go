package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/tui/components"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Handle state-specific keys
	switch m.State {
	case StateLogin:
		return m.handleLoginKey(msg)

	case StateHelp:
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.State = StateBrowsing
		}
		return m, nil

	case StateConfirmLogout:
		switch {
		case key.Matches(msg, Keys.Confirm):
			return m, LogoutCmd(m.SessionSvc)
		case key.Matches(msg, Keys.Deny):
			m.State = StateBrowsing
		}
		return m, nil
	}

	// Any key dismisses an alert
	if m.Alert.IsVisible() {
		m.Alert.Hide()
		return m, nil
	}

	if m.Form.IsVisible() {
		return m.handleFormKey(msg)
	}

	if m.Pages[m.Page].Phase == PhaseConfirmDelete {
		return m.handleConfirmDelete(msg)
	}

	// Filter input captures everything while typing
	if m.activeTable().Filtering() {
		return m.updateActiveTable(msg)
	}

	// Global keys
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Logout):
		m.State = StateConfirmLogout
		return m, nil

	case key.Matches(msg, Keys.NextPage):
		return m.switchPage(m.Page.next())
	case key.Matches(msg, Keys.PrevPage):
		return m.switchPage(m.Page.prev())
	case key.Matches(msg, Keys.Page1):
		return m.switchPage(PageAuthors)
	case key.Matches(msg, Keys.Page2):
		return m.switchPage(PageBooks)
	case key.Matches(msg, Keys.Page3):
		return m.switchPage(PageUsers)
	case key.Matches(msg, Keys.Page4):
		return m.switchPage(PageBorrow)

	case key.Matches(msg, Keys.Refresh):
		if m.Page == PageBorrow && m.LoansFocused {
			if userID, ok := m.selectedUser(); ok {
				m.Svc.Borrows.Evict(userID)
				m.loansFor = 0
			}
			return m, nil
		}
		return m, RefreshPageCmd(m.Svc, m.Page)

	case key.Matches(msg, Keys.Filter):
		cmd := m.activeTablePtr().StartFilter()
		return m, cmd
	}

	if m.Page == PageBorrow {
		return m.handleBorrowKey(msg)
	}

	switch {
	case key.Matches(msg, Keys.Add):
		return m.openAddForm()
	case key.Matches(msg, Keys.Edit):
		return m.openEditForm()
	case key.Matches(msg, Keys.Delete):
		if row, ok := m.activeTable().Selected(); ok {
			m.Pages[m.Page].AskDelete(row.ID)
		}
		return m, nil
	}

	return m.updateActiveTable(msg)
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	// The login form cannot be dismissed
	if msg.String() == "esc" {
		return m, nil
	}
	var cmd tea.Cmd
	var submitted bool
	m.Login, cmd, submitted = m.Login.Update(msg)
	if !submitted {
		return m, cmd
	}

	email, password := m.Login.Value(0), m.Login.Value(1)
	if email == "" || password == "" {
		m.Login.SetHint("Email and password are required")
		return m, nil
	}
	m.Login.SetHint("")
	m.Login.SetBusy(true)
	return m, LoginCmd(m.SessionSvc, email, password)
}

func (m Model) handleConfirmDelete(msg tea.KeyMsg) (Model, tea.Cmd) {
	state := &m.Pages[m.Page]
	switch {
	case key.Matches(msg, Keys.Confirm):
		id := state.PendingID
		if !state.Submit() {
			return m, nil
		}
		switch m.Page {
		case PageAuthors:
			return m, DeleteAuthorCmd(m.Svc, id)
		case PageBooks:
			return m, DeleteBookCmd(m.Svc, id)
		case PageUsers:
			return m, DeleteUserCmd(m.Svc, id)
		}
	case key.Matches(msg, Keys.Deny):
		state.Decline()
	}
	return m, nil
}

func (m Model) handleBorrowKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Focus):
		m.LoansFocused = !m.LoansFocused
		m.focusTables()
		return m, nil

	case key.Matches(msg, Keys.Borrow):
		if m.Pages[PageBorrow].Busy() {
			return m, nil
		}
		userID, ok := m.selectedUser()
		if !ok {
			return m.withStatus("Select a user first", true)
		}
		if len(m.Svc.AvailableBooks()) == 0 {
			return m.withStatus("No books are available", true)
		}
		return m.showForm(formBorrow, "Lend a book to "+m.Svc.UserName(userID),
			components.Field{Label: "Book", Placeholder: "title, fuzzy matched"},
		)

	case key.Matches(msg, Keys.Return):
		userID, ok := m.selectedUser()
		if !ok {
			return m, nil
		}
		row, ok := m.Loans.Selected()
		if !ok {
			return m.withStatus("No loan selected", true)
		}
		if !m.Pages[PageBorrow].Submit() {
			return m, nil
		}
		return m, ReturnCmd(m.Svc, row.ID, userID)
	}

	return m.updateActiveTable(msg)
}

// === Forms ===

func (m Model) openAddForm() (Model, tea.Cmd) {
	if m.Pages[m.Page].Busy() {
		return m, nil
	}
	switch m.Page {
	case PageAuthors:
		return m.showForm(formAuthor, "New author", components.Field{Label: "Name"})
	case PageBooks:
		return m.showForm(formBook, "New book",
			components.Field{Label: "Title"},
			components.Field{Label: "Author", Placeholder: "name, fuzzy matched"},
		)
	case PageUsers:
		return m.showForm(formUser, "New user",
			components.Field{Label: "Name"},
			components.Field{Label: "Email"},
		)
	}
	return m, nil
}

func (m Model) openEditForm() (Model, tea.Cmd) {
	row, ok := m.activeTable().Selected()
	if !ok || !m.Pages[m.Page].StartEdit(row.ID) {
		return m, nil
	}
	switch m.Page {
	case PageAuthors:
		a, _ := m.Svc.Authors.Get(row.ID)
		return m.showForm(formAuthor, "Edit author", components.Field{Label: "Name", Value: a.Name})
	case PageBooks:
		b, _ := m.Svc.Books.Get(row.ID)
		author := ""
		if label := m.Svc.AuthorLabel(b); label != domain.UnknownAuthor {
			author = label
		}
		return m.showForm(formBook, "Edit book",
			components.Field{Label: "Title", Value: b.Title},
			components.Field{Label: "Author", Value: author},
		)
	case PageUsers:
		u, _ := m.Svc.Users.Get(row.ID)
		return m.showForm(formUser, "Edit user",
			components.Field{Label: "Name", Value: u.Name},
			components.Field{Label: "Email", Value: u.Email},
		)
	}
	m.Pages[m.Page].CancelEdit()
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	var submitted bool
	m.Form, cmd, submitted = m.Form.Update(msg)

	if !m.Form.IsVisible() {
		// Cancel discards the edit
		m.Pages[m.Page].CancelEdit()
		m.formKind = formNone
		return m, cmd
	}
	if !submitted {
		m.previewChoice()
		return m, cmd
	}
	return m.submitForm()
}

// previewChoice shows which entity the reference field currently resolves to
func (m *Model) previewChoice() {
	var query string
	var choices []Choice
	switch m.formKind {
	case formBook:
		if m.Form.Focused() != 1 {
			return
		}
		query, choices = m.Form.Value(1), authorChoices(m.Svc.Authors.Items())
	case formBorrow:
		query, choices = m.Form.Value(0), bookChoices(m.Svc.AvailableBooks())
	default:
		return
	}
	if c, ok := resolveChoice(query, choices); ok {
		m.Form.SetHint("→ " + c.Label)
	} else if query != "" {
		m.Form.SetHint("no match")
	} else {
		m.Form.SetHint("")
	}
}

// submitForm validates the open form and starts the page submission
func (m Model) submitForm() (Model, tea.Cmd) {
	state := &m.Pages[m.Page]
	if state.Busy() {
		return m, nil
	}
	id := state.EditingID

	var cmd tea.Cmd
	switch m.formKind {
	case formAuthor:
		fields := domain.AuthorFields{Name: m.Form.Value(0)}
		if err := fields.Validate(); err != nil {
			m.Form.SetHint(err.Error())
			return m, nil
		}
		cmd = SaveAuthorCmd(m.Svc, id, fields)

	case formBook:
		author, ok := resolveChoice(m.Form.Value(1), authorChoices(m.Svc.Authors.Items()))
		fields := domain.BookFields{Title: m.Form.Value(0)}
		if ok {
			fields.AuthorID = author.ID
		}
		if err := fields.Validate(); err != nil {
			m.Form.SetHint(err.Error())
			return m, nil
		}
		cmd = SaveBookCmd(m.Svc, id, fields)

	case formUser:
		fields := domain.UserFields{Name: m.Form.Value(0), Email: m.Form.Value(1)}
		if err := fields.Validate(); err != nil {
			m.Form.SetHint(err.Error())
			return m, nil
		}
		cmd = SaveUserCmd(m.Svc, id, fields)

	case formBorrow:
		userID, ok := m.selectedUser()
		if !ok {
			m.closeForm()
			return m, nil
		}
		book, ok := resolveChoice(m.Form.Value(0), bookChoices(m.Svc.AvailableBooks()))
		if !ok {
			m.Form.SetHint("book is required")
			return m, nil
		}
		cmd = BorrowCmd(m.Svc, userID, book.ID)

	default:
		m.closeForm()
		return m, nil
	}

	state.Submit()
	m.Form.SetBusy(true)
	return m, cmd
}

// === Tables ===

func (m Model) activeTable() components.Table {
	if m.Page == PageBorrow && m.LoansFocused {
		return m.Loans
	}
	return m.Tables[m.Page]
}

func (m *Model) activeTablePtr() *components.Table {
	if m.Page == PageBorrow && m.LoansFocused {
		return &m.Loans
	}
	return &m.Tables[m.Page]
}

func (m Model) updateActiveTable(msg tea.Msg) (Model, tea.Cmd) {
	t := m.activeTablePtr()
	var cmd tea.Cmd
	*t, cmd = t.Update(msg)
	return m, cmd
}
