package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/event"
	"github.com/mmcdole/libraryhub/internal/library"
	"github.com/mmcdole/libraryhub/internal/tui/components"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateLogin ApplicationState = iota
	StateBrowsing
	StateHelp
	StateConfirmLogout
)

// Layout
const (
	SidebarWidth = 24
	ChromeHeight = 1 // footer line
	tickInterval = 100 * time.Millisecond
)

// statusTTL is how long a footer status stays up
var statusTTL = 3 * time.Second

// formKind identifies what the open form edits
type formKind int

const (
	formNone formKind = iota
	formAuthor
	formBook
	formUser
	formBorrow
)

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool
	Page  Page

	// Services
	Svc        *library.Service
	SessionSvc *library.SessionService
	logger     *slog.Logger

	// Per page mutation state and lists. The Borrow page lists users in
	// its table and the selected user's loans in Loans.
	Pages  [pageCount]PageState
	Tables [pageCount]components.Table
	Loans  components.Table

	// Borrow page focus: false = users, true = loans
	LoansFocused bool
	loansFor     domain.ID // user whose loans were last requested

	// Modals
	Form     components.Form
	formKind formKind
	Login    components.Form
	Alert    components.Alert

	// Page lifetime subscriptions
	subs event.Group

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int
}

// NewModel creates the application model. The console starts on the login
// view unless a session token is already stored.
func NewModel(svc *library.Service, sess *library.SessionService, start Page, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := Model{
		State:      StateLogin,
		Page:       start,
		Svc:        svc,
		SessionSvc: sess,
		logger:     logger,
		Form:       components.NewForm(),
		Login:      components.NewForm(),
	}

	m.Tables[PageAuthors] = components.NewTable("Authors",
		components.TableColumn{Title: "ID", Width: 6},
		components.TableColumn{Title: "Name"},
	)
	m.Tables[PageBooks] = components.NewTable("Books",
		components.TableColumn{Title: "Title"},
		components.TableColumn{Title: "Author"},
		components.TableColumn{Title: "Status", Width: 10, Render: renderStatus},
	)
	m.Tables[PageUsers] = components.NewTable("Users",
		components.TableColumn{Title: "Name"},
		components.TableColumn{Title: "Email"},
	)
	m.Tables[PageBorrow] = components.NewTable("Members",
		components.TableColumn{Title: "Name"},
	)
	m.Loans = components.NewTable("Active loans",
		components.TableColumn{Title: "Title"},
		components.TableColumn{Title: "Since", Width: 10},
	)
	m.Tables[PageAuthors].SetEmptyText("No authors")
	m.Tables[PageBooks].SetEmptyText("No books")
	m.Tables[PageUsers].SetEmptyText("No users")
	m.Tables[PageBorrow].SetEmptyText("No users")
	m.Loans.SetEmptyText("No active loans")

	if sess.LoggedIn() {
		m.State = StateBrowsing
		m.subs = pageSubscriptions(svc, start)
	} else {
		m.showLogin()
	}
	m.focusTables()
	m.syncTables()
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{TickCmd(tickInterval)}
	if m.State == StateBrowsing {
		cmds = append(cmds, LoadPageCmd(m.Svc, m.Page))
	}
	return tea.Batch(cmds...)
}

// Update handles all messages. Lists are rebuilt from the stores after
// every message so background refreshes show up on the next frame.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m.syncTables()
	if loadCmd := m.maybeLoadLoans(); loadCmd != nil {
		cmd = tea.Batch(cmd, loadCmd)
	}
	return m, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(tickInterval)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil

	case PageLoadedMsg:
		return m, nil

	case LoansLoadedMsg:
		return m, nil

	case ErrMsg:
		if errors.Is(msg.Err, domain.ErrAuthFailed) {
			return m.expireSession()
		}
		m.logger.Error("load failed", "context", msg.Context, "error", msg.Err)
		return m.withStatus(msg.Error(), true)

	case MutationDoneMsg:
		return m.handleMutationDone(msg)

	case LoginDoneMsg:
		m.Login.SetBusy(false)
		if msg.Err != nil {
			text := "Login failed"
			if errors.Is(msg.Err, domain.ErrAuthFailed) {
				text = "Invalid email or password"
			} else if errors.Is(msg.Err, domain.ErrServerOffline) {
				text = "Server is unreachable"
			}
			m.Login.SetHint(text)
			return m, nil
		}
		m.Login.Hide()
		m.State = StateBrowsing
		m.subs.Unsubscribe()
		m.subs = pageSubscriptions(m.Svc, m.Page)
		m.focusTables()
		status := m.setStatus("Logged in as "+msg.Email, false)
		return m, tea.Batch(LoadPageCmd(m.Svc, m.Page), status)

	case LogoutDoneMsg:
		if msg.Err != nil {
			m.logger.Error("failed to log out", "error", msg.Err)
			m.State = StateBrowsing
			return m.withStatus("Logout failed: "+msg.Err.Error(), true)
		}
		m.subs.Unsubscribe()
		m.subs = nil
		m.Pages = [pageCount]PageState{}
		m.Form.Hide()
		m.formKind = formNone
		m.loansFor = 0
		for i := range m.Tables {
			m.Tables[i].ClearFilter()
		}
		m.showLogin()
		return m, nil
	}

	return m, nil
}

// handleMutationDone finishes a page submission. Writes whose dependent
// refresh failed still count as success but leave a warning.
func (m Model) handleMutationDone(msg MutationDoneMsg) (Model, tea.Cmd) {
	wasEditing := m.Pages[msg.Page].EditingID != 0
	m.Pages[msg.Page].Finish()
	formOpen := m.Form.IsVisible() && msg.Page == m.Page

	if msg.Err != nil && errors.Is(msg.Err, domain.ErrAuthFailed) {
		return m.expireSession()
	}

	if msg.Err != nil && !errors.Is(msg.Err, library.ErrSyncFailed) {
		m.logger.Error("mutation failed", "page", msg.Page, "verb", msg.Verb, "error", msg.Err)
		// An add form keeps the operator's input for another try
		if formOpen && wasEditing {
			m.closeForm()
		} else if formOpen {
			m.Form.SetBusy(false)
		}
		m.Alert.Show("Could not save", describeError(msg.Err))
		return m, nil
	}

	if formOpen {
		m.closeForm()
	}
	text := fmt.Sprintf("%s %s", capitalize(notice(msg.Page, msg.Verb)), msg.Verb)
	if msg.Err != nil {
		m.logger.Warn("write succeeded with stale views", "page", msg.Page, "error", msg.Err)
		return m.withStatus(text+", but some lists may be stale", true)
	}
	return m.withStatus(text, false)
}

// expireSession drops the stored token after a 401 and returns to login
func (m Model) expireSession() (Model, tea.Cmd) {
	m.logger.Warn("session rejected by server")
	m.Alert.Hide()
	cmd := m.setStatus("Session expired, please log in again", true)
	return m, tea.Batch(LogoutCmd(m.SessionSvc), cmd)
}

func (m *Model) showLogin() {
	m.State = StateLogin
	m.Login.Show("Sign in to LibraryHub",
		components.Field{Label: "Email", Placeholder: "admin@library.local", Value: m.SessionSvc.Email()},
		components.Field{Label: "Password", Secret: true},
	)
}

// switchPage moves to page p, swapping the page lifetime subscriptions
func (m Model) switchPage(p Page) (Model, tea.Cmd) {
	if p == m.Page {
		return m, nil
	}
	m.subs.Unsubscribe()
	m.Page = p
	m.subs = pageSubscriptions(m.Svc, p)
	m.LoansFocused = false
	m.focusTables()
	m.updateLayout()
	return m, LoadPageCmd(m.Svc, p)
}

// selectedUser returns the user highlighted on the Borrow page
func (m Model) selectedUser() (domain.ID, bool) {
	row, ok := m.Tables[PageBorrow].Selected()
	return row.ID, ok
}

// maybeLoadLoans requests the highlighted user's loans once per selection
// when they are not cached.
func (m *Model) maybeLoadLoans() tea.Cmd {
	if m.State != StateBrowsing || m.Page != PageBorrow {
		return nil
	}
	userID, ok := m.selectedUser()
	if !ok {
		return nil
	}
	if _, cached := m.Svc.Loans(userID); cached {
		m.loansFor = userID
		return nil
	}
	if m.loansFor == userID {
		return nil
	}
	m.loansFor = userID
	return LoadLoansCmd(m.Svc, userID)
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return ClearStatusCmd(statusTTL)
}

func (m Model) withStatus(text string, isErr bool) (Model, tea.Cmd) {
	cmd := m.setStatus(text, isErr)
	return m, cmd
}

func (m Model) showForm(kind formKind, title string, fields ...components.Field) (Model, tea.Cmd) {
	m.formKind = kind
	cmd := m.Form.Show(title, fields...)
	return m, cmd
}

func (m *Model) focusTables() {
	for i := range m.Tables {
		m.Tables[i].SetFocused(Page(i) == m.Page && !(m.Page == PageBorrow && m.LoansFocused))
	}
	m.Loans.SetFocused(m.Page == PageBorrow && m.LoansFocused)
}

func (m *Model) closeForm() {
	m.Form.Hide()
	m.formKind = formNone
}

// updateLayout resizes the tables to the content area
func (m *Model) updateLayout() {
	if m.Width == 0 || m.Height == 0 {
		return
	}
	contentWidth := max(m.Width-SidebarWidth, 20)
	contentHeight := max(m.Height-ChromeHeight, 5)

	for i := range m.Tables {
		m.Tables[i].SetSize(contentWidth, contentHeight)
	}
	// Borrow page splits the content area between members and loans
	usersWidth := contentWidth * 2 / 5
	m.Tables[PageBorrow].SetSize(usersWidth, contentHeight)
	m.Loans.SetSize(contentWidth-usersWidth, contentHeight)
}

// describeError turns a store error into alert text
func describeError(err error) string {
	var apiErr *domain.APIError
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr.Error()
	case errors.Is(err, domain.ErrServerOffline):
		return "The server is unreachable. Check your connection and try again."
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Server returned %d", apiErr.StatusCode)
	default:
		return err.Error()
	}
}

func notice(p Page, verb string) string {
	if verb == "borrowed" || verb == "returned" {
		return "book"
	}
	return p.noun()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
