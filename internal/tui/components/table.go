package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// Layout constants for tables
const (
	// Border adds 1 char on each side
	BorderWidth  = 2
	BorderHeight = 2

	// Title line, header line and the filter/scroll line
	tableChromeLines = 3
)

// TableColumn is one column of a Table. Width 0 takes the remaining space.
// Render, when set, styles the padded cell text.
type TableColumn struct {
	Title  string
	Width  int
	Render func(cell string) string
}

// Row is one entity rendered as cells. Keyed by the entity id so the
// cursor survives a refresh.
type Row struct {
	ID    domain.ID
	Cells []string
}

// rowSource implements sahilm/fuzzy.Source over the joined lowercase cells
type rowSource []string

func (s rowSource) String(i int) string { return s[i] }
func (s rowSource) Len() int            { return len(s) }

// Table is a scrollable, filterable list of rows
type Table struct {
	title   string
	columns []TableColumn
	rows    []Row
	empty   string

	// Selection
	cursor     int
	offset     int
	maxVisible int

	// Dimensions
	width   int
	height  int
	focused bool

	loading      bool
	spinnerFrame int

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	matches      []int // indices into rows; nil when not filtering
}

// NewTable creates an empty table
func NewTable(title string, columns ...TableColumn) Table {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle

	return Table{
		title:       title,
		columns:     columns,
		empty:       "Nothing here yet",
		filterInput: ti,
		maxVisible:  10,
	}
}

// SetRows replaces the rows, keeping the cursor on the same id if present
func (t *Table) SetRows(rows []Row) {
	selected, hadSelection := t.Selected()
	t.rows = rows
	if t.filterActive {
		t.applyFilter()
	}
	if hadSelection {
		for i := 0; i < t.Len(); i++ {
			if t.rows[t.mapIndex(i)].ID == selected.ID {
				t.cursor = i
				t.ensureVisible()
				return
			}
		}
	}
	t.clampCursor()
}

// SetEmptyText sets the placeholder shown when there are no rows
func (t *Table) SetEmptyText(s string) {
	t.empty = s
}

// SetTitle sets the header title
func (t *Table) SetTitle(title string) {
	t.title = title
}

// SetSize sets the rendered size including the border
func (t *Table) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.maxVisible = max(height-BorderHeight-tableChromeLines, 1)
	t.ensureVisible()
}

// SetFocused sets the focus state
func (t *Table) SetFocused(focused bool) {
	t.focused = focused
}

// SetLoading shows a spinner in the title while a fetch is running
func (t *Table) SetLoading(loading bool, frame int) {
	t.loading = loading
	t.spinnerFrame = frame
}

// Len returns the number of visible rows
func (t Table) Len() int {
	if t.matches != nil {
		return len(t.matches)
	}
	return len(t.rows)
}

// Selected returns the row under the cursor
func (t Table) Selected() (Row, bool) {
	if t.cursor < 0 || t.cursor >= t.Len() {
		return Row{}, false
	}
	return t.rows[t.mapIndex(t.cursor)], true
}

// Filtering reports whether the filter input is capturing keys
func (t Table) Filtering() bool {
	return t.filterActive && t.filterInput.Focused()
}

// FilterQuery returns the active filter query
func (t Table) FilterQuery() string {
	if !t.filterActive {
		return ""
	}
	return t.filterInput.Value()
}

// StartFilter opens the filter input
func (t *Table) StartFilter() tea.Cmd {
	t.filterActive = true
	return t.filterInput.Focus()
}

// ClearFilter closes the filter and shows every row
func (t *Table) ClearFilter() {
	t.filterActive = false
	t.filterInput.Blur()
	t.filterInput.SetValue("")
	t.matches = nil
	t.cursor = 0
	t.offset = 0
}

func (t *Table) applyFilter() {
	query := strings.ToLower(t.filterInput.Value())
	if query == "" {
		t.matches = nil
		return
	}

	src := make(rowSource, len(t.rows))
	for i, r := range t.rows {
		src[i] = strings.ToLower(strings.Join(r.Cells, " "))
	}

	found := fuzzy.FindFrom(query, src)
	t.matches = make([]int, len(found))
	for i, match := range found {
		t.matches[i] = match.Index
	}
}

func (t Table) mapIndex(i int) int {
	if t.matches != nil {
		return t.matches[i]
	}
	return i
}

// Update handles navigation and filter input
func (t Table) Update(msg tea.Msg) (Table, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return t, nil
	}

	if t.Filtering() {
		switch keyMsg.String() {
		case "esc":
			t.ClearFilter()
			return t, nil
		case "enter":
			// Keep results, hand keys back to navigation
			t.filterInput.Blur()
			return t, nil
		case "backspace":
			if t.filterInput.Value() == "" {
				t.ClearFilter()
				return t, nil
			}
		}
		var cmd tea.Cmd
		t.filterInput, cmd = t.filterInput.Update(msg)
		t.applyFilter()
		t.cursor, t.offset = 0, 0
		return t, cmd
	}

	count := t.Len()
	switch keyMsg.String() {
	case "esc":
		if t.filterActive {
			t.ClearFilter()
		}
	case "j", "down":
		if t.cursor < count-1 {
			t.cursor++
		}
	case "k", "up":
		if t.cursor > 0 {
			t.cursor--
		}
	case "g", "home":
		t.cursor = 0
	case "G", "end":
		t.cursor = count - 1
	case "ctrl+d", "pgdown":
		t.cursor += t.maxVisible / 2
	case "ctrl+u", "pgup":
		t.cursor -= t.maxVisible / 2
	}
	t.clampCursor()
	return t, nil
}

func (t *Table) clampCursor() {
	count := t.Len()
	if t.cursor >= count {
		t.cursor = count - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureVisible()
}

func (t *Table) ensureVisible() {
	if t.maxVisible <= 0 {
		return
	}
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+t.maxVisible {
		t.offset = t.cursor - t.maxVisible + 1
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

// columnWidths resolves flexible columns against the inner width
func (t Table) columnWidths(inner int) []int {
	widths := make([]int, len(t.columns))
	fixed, flex := 0, 0
	for i, c := range t.columns {
		widths[i] = c.Width
		fixed += c.Width
		if c.Width == 0 {
			flex++
		}
	}
	// one space between cells plus item padding
	remaining := inner - fixed - len(t.columns) - 2
	if flex > 0 {
		share := max(remaining/flex, 8)
		for i, c := range t.columns {
			if c.Width == 0 {
				widths[i] = share
			}
		}
	}
	return widths
}

func (t Table) renderCells(cells []string, widths []int, styled bool) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = styles.Pad(cell, w)
		if styled && t.columns[i].Render != nil {
			parts[i] = t.columns[i].Render(parts[i])
		}
	}
	return strings.Join(parts, " ")
}

// View renders the table
func (t Table) View() string {
	style := styles.InactiveBorder
	if t.focused {
		style = styles.ActiveBorder
	}
	frameW, frameH := style.GetFrameSize()
	innerW := max(t.width-frameW, 10)

	title := styles.TitleStyle.Render(t.title)
	if t.loading {
		title += " " + styles.RenderSpinner(t.spinnerFrame)
	} else {
		title += styles.DimStyle.Render(fmt.Sprintf(" (%d)", t.Len()))
	}

	widths := t.columnWidths(innerW)
	titles := make([]string, len(t.columns))
	for i, c := range t.columns {
		titles[i] = c.Title
	}
	lines := []string{
		title,
		styles.HeaderStyle.Render(" " + t.renderCells(titles, widths, false) + " "),
	}

	count := t.Len()
	if count == 0 {
		msg := t.empty
		if t.matches != nil {
			msg = "No matches"
		}
		lines = append(lines, styles.DimStyle.Render(" "+msg))
	}

	end := min(t.offset+t.maxVisible, count)
	for i := t.offset; i < end; i++ {
		text := t.renderCells(t.rows[t.mapIndex(i)].Cells, widths, i != t.cursor)
		switch {
		case i == t.cursor && t.focused:
			lines = append(lines, styles.SelectedItemStyle.Render(text))
		case i == t.cursor:
			lines = append(lines, styles.FocusedItemStyle.Render(text))
		default:
			lines = append(lines, styles.NormalItemStyle.Render(text))
		}
	}

	var footer string
	switch {
	case t.filterActive:
		footer = t.filterInput.View()
	case end < count:
		footer = styles.DimStyle.Render(fmt.Sprintf("↓ %d more", count-end))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	if footer != "" {
		bodyH := max(t.height-frameH-1, lipgloss.Height(content))
		content = lipgloss.NewStyle().Height(bodyH).Render(content) + "\n" + footer
	}

	return style.
		Width(innerW).
		Height(max(t.height-frameH, 1)).
		Render(content)
}
