package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/libraryhub/internal/tui/components"
	"github.com/mmcdole/libraryhub/internal/tui/styles"
)

// === Rows ===

// syncTables rebuilds every list from the current store snapshots
func (m *Model) syncTables() {
	svc := m.Svc

	authors := svc.Authors.Items()
	rows := make([]components.Row, len(authors))
	for i, a := range authors {
		rows[i] = components.Row{ID: a.ID, Cells: []string{a.ID.String(), a.Name}}
	}
	m.Tables[PageAuthors].SetRows(rows)
	m.Tables[PageAuthors].SetLoading(svc.Authors.Loading(), m.SpinnerFrame)

	books := svc.Books.Items()
	rows = make([]components.Row, len(books))
	for i, b := range books {
		rows[i] = components.Row{ID: b.ID, Cells: []string{b.Title, svc.AuthorLabel(b), b.Status()}}
	}
	m.Tables[PageBooks].SetRows(rows)
	m.Tables[PageBooks].SetLoading(svc.Books.Loading() || svc.Authors.Loading(), m.SpinnerFrame)

	users := svc.Users.Items()
	rows = make([]components.Row, len(users))
	members := make([]components.Row, len(users))
	for i, u := range users {
		rows[i] = components.Row{ID: u.ID, Cells: []string{u.Name, u.Email}}
		members[i] = components.Row{ID: u.ID, Cells: []string{u.Name}}
	}
	m.Tables[PageUsers].SetRows(rows)
	m.Tables[PageUsers].SetLoading(svc.Users.Loading(), m.SpinnerFrame)
	m.Tables[PageBorrow].SetRows(members)
	m.Tables[PageBorrow].SetLoading(svc.Users.Loading() || svc.Books.Loading(), m.SpinnerFrame)

	m.syncLoans()
}

func (m *Model) syncLoans() {
	userID, ok := m.selectedUser()
	if !ok {
		m.Loans.SetTitle("Active loans")
		m.Loans.SetRows(nil)
		m.Loans.SetLoading(false, m.SpinnerFrame)
		return
	}

	m.Loans.SetTitle("Loans · " + m.Svc.UserName(userID))
	records, cached := m.Svc.Loans(userID)
	if !cached {
		m.Loans.SetEmptyText("Not loaded")
	} else {
		m.Loans.SetEmptyText("No active loans")
	}
	rows := make([]components.Row, 0, len(records))
	for _, rec := range records {
		since := ""
		if !rec.BorrowedAt.IsZero() {
			since = rec.BorrowedAt.Format("2006-01-02")
		}
		// Keyed by book id: returns are addressed by book
		rows = append(rows, components.Row{ID: rec.BookID, Cells: []string{m.Svc.LoanTitle(rec), since}})
	}
	m.Loans.SetRows(rows)
	m.Loans.SetLoading(m.Svc.Borrows.Loading(), m.SpinnerFrame)
}

// renderStatus colors a padded book status cell
func renderStatus(cell string) string {
	if strings.HasPrefix(cell, "Borrowed") {
		return styles.BorrowedStyle.Render(cell)
	}
	return styles.AvailableStyle.Render(cell)
}

// === View ===

// View renders the current state. It only reads store snapshots.
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	switch m.State {
	case StateLogin:
		return m.renderLogin()
	case StateHelp:
		return m.renderHelp()
	case StateConfirmLogout:
		return m.renderLogoutConfirmation()
	}

	contentHeight := m.Height - ChromeHeight
	sidebar := lipgloss.NewStyle().Height(contentHeight).Render(m.renderSidebar())

	var content string
	if m.Page == PageBorrow {
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.Tables[PageBorrow].View(), m.Loans.View())
	} else {
		content = m.Tables[m.Page].View()
	}

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content),
		m.renderFooter(),
	)

	if m.Form.IsVisible() {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.Form.View())
	}

	if m.Alert.IsVisible() {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.Alert.View())
	}

	return view
}

func (m Model) renderSidebar() string {
	svc := m.Svc
	entries := []components.SidebarEntry{
		{Key: "1", Name: PageAuthors.String(), Count: len(svc.Authors.Items()), Loaded: svc.Authors.Loaded(), Loading: svc.Authors.Loading()},
		{Key: "2", Name: PageBooks.String(), Count: len(svc.Books.Items()), Loaded: svc.Books.Loaded(), Loading: svc.Books.Loading()},
		{Key: "3", Name: PageUsers.String(), Count: len(svc.Users.Items()), Loaded: svc.Users.Loaded(), Loading: svc.Users.Loading()},
		{Key: "4", Name: PageBorrow.String(), Count: len(svc.AvailableBooks()), Loaded: svc.Books.Loaded() && svc.Users.Loaded(), Loading: svc.Borrows.Loading()},
	}
	return components.Sidebar{
		Entries:  entries,
		Selected: int(m.Page),
		Frame:    m.SpinnerFrame,
		Width:    SidebarWidth,
	}.View()
}

// renderFooter renders a single-line footer: status on the left, page
// hints in the middle and the help hint on the right.
func (m Model) renderFooter() string {
	var left string
	state := m.Pages[m.Page]
	switch {
	case state.Phase == PhaseConfirmDelete:
		left = styles.AccentStyle.Render(fmt.Sprintf("Delete %s #%s? ", m.Page.noun(), state.PendingID)) +
			styles.Hint("y", "yes") + "  " + styles.Hint("n", "no")
	case state.Busy():
		left = styles.RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Saving...")
	case m.StatusMsg != "" && m.StatusIsErr:
		left = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		left = styles.SuccessStyle.Render(m.StatusMsg)
	}

	var hints []string
	if m.Page == PageBorrow {
		hints = []string{styles.Hint("b", "borrow"), styles.Hint("x", "return"), styles.Hint("h/l", "focus")}
	} else {
		hints = []string{styles.Hint("a", "add"), styles.Hint("e", "edit"), styles.Hint("d", "delete")}
	}
	hints = append(hints, styles.Hint("/", "filter"), styles.Hint("r", "refresh"))
	center := strings.Join(hints, "  ")

	right := styles.Hint("?", "help")
	if email := m.SessionSvc.Email(); email != "" {
		right = styles.DimStyle.Render(email+"  ") + right
	}

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth+2 >= m.Width {
		gap := max(m.Width-leftWidth-rightWidth, 1)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad
	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

func (m Model) renderLogin() string {
	body := m.Login.View()
	if m.StatusMsg != "" {
		style := styles.DimStyle
		if m.StatusIsErr {
			style = styles.ErrorStyle
		}
		body = lipgloss.JoinVertical(lipgloss.Center, body, "", style.Render(m.StatusMsg))
	}
	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		body)
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
PAGES                           EDITING
  tab/S-tab  Next/previous        a      Add
  1-4        Jump to page         e      Edit selected
  j/k        Up/down              d      Delete selected
  g/G        First/last           esc    Cancel form
  /          Filter               enter  Next field / save

BORROW                          OTHER
  h/l        Members/loans        r      Refresh page
  b          Lend a book          L      Logout
  x          Return selected      q      Quit
                                  ?      This help

Press ? or esc to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

// renderLogoutConfirmation renders the logout confirmation modal
func (m Model) renderLogoutConfirmation() string {
	modal := `
              Log Out?

  This will forget your session token
  and every cached list.

        [Y] Yes      [N] No
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(modal))
}
