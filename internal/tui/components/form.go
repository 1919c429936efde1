package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/libraryhub/internal/tui/styles"
)

// Field describes one input of a Form
type Field struct {
	Label       string
	Placeholder string
	Value       string
	Secret      bool
}

// Form is a modal with one or more labeled text inputs
type Form struct {
	visible bool
	title   string
	labels  []string
	inputs  []textinput.Model
	focus   int
	hint    string
	busy    bool
}

// NewForm creates a hidden form
func NewForm() Form {
	return Form{}
}

func newInput(f Field) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = f.Placeholder
	ti.CharLimit = 120
	ti.Width = 36
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.Text)
	ti.PlaceholderStyle = styles.DimStyle
	if f.Secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.SetValue(f.Value)
	return ti
}

// Show displays the form with the given fields, focusing the first one
func (m *Form) Show(title string, fields ...Field) tea.Cmd {
	m.visible = true
	m.title = title
	m.hint = ""
	m.busy = false
	m.focus = 0
	m.labels = make([]string, len(fields))
	m.inputs = make([]textinput.Model, len(fields))
	for i, f := range fields {
		m.labels[i] = f.Label
		m.inputs[i] = newInput(f)
	}
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[0].Focus()
}

// Hide dismisses the form
func (m *Form) Hide() {
	m.visible = false
	m.busy = false
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

// IsVisible returns whether the form is shown
func (m Form) IsVisible() bool {
	return m.visible
}

// Title returns the form title
func (m Form) Title() string {
	return m.title
}

// Value returns the trimmed value of field i
func (m Form) Value(i int) string {
	if i < 0 || i >= len(m.inputs) {
		return ""
	}
	return strings.TrimSpace(m.inputs[i].Value())
}

// Focused returns the index of the focused field
func (m Form) Focused() int {
	return m.focus
}

// SetHint sets a line shown under the inputs, e.g. a resolved match
func (m *Form) SetHint(hint string) {
	m.hint = hint
}

// SetBusy marks the form as submitting; input is ignored while busy
func (m *Form) SetBusy(busy bool) {
	m.busy = busy
}

func (m *Form) setFocus(i int) tea.Cmd {
	n := len(m.inputs)
	if n == 0 {
		return nil
	}
	m.inputs[m.focus].Blur()
	m.focus = (i%n + n) % n
	return m.inputs[m.focus].Focus()
}

// Update handles input events, returns (form, cmd, submitted). Esc hides
// the form; callers detect cancellation with IsVisible.
func (m Form) Update(msg tea.Msg) (Form, tea.Cmd, bool) {
	if !m.visible || m.busy {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			if m.focus < len(m.inputs)-1 {
				return m, m.setFocus(m.focus + 1), false
			}
			return m, nil, true
		case "esc":
			m.Hide()
			return m, nil, false
		case "tab", "down":
			return m, m.setFocus(m.focus + 1), false
		case "shift+tab", "up":
			return m, m.setFocus(m.focus - 1), false
		}
	}

	if len(m.inputs) == 0 {
		return m, nil, false
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd, false
}

// View renders the form
func (m Form) View() string {
	if !m.visible {
		return ""
	}

	const modalWidth = 44

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Text).
		Bold(true).
		Width(modalWidth).
		Background(styles.Surface)

	lineStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.Surface)

	rows := []string{titleStyle.Render(m.title), lineStyle.Render("")}
	for i, input := range m.inputs {
		label := styles.DimStyle.Render(m.labels[i])
		if i == m.focus {
			label = styles.AccentStyle.Render(m.labels[i])
		}
		rows = append(rows, lineStyle.Render(label), lineStyle.Render(input.View()), lineStyle.Render(""))
	}
	switch {
	case m.busy:
		rows = append(rows, lineStyle.Render(styles.DimStyle.Render("Saving...")))
	case m.hint != "":
		rows = append(rows, lineStyle.Render(m.hint))
	default:
		rows = append(rows, lineStyle.Render(styles.DimStyle.Render("enter submit · tab next · esc cancel")))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Accent).
		Background(styles.Surface).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
