package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/libraryhub/internal/tui/styles"
)

// Alert is a blocking message dismissed by any key
type Alert struct {
	visible bool
	title   string
	message string
}

// Show displays the alert
func (a *Alert) Show(title, message string) {
	a.visible = true
	a.title = title
	a.message = message
}

// Hide dismisses the alert
func (a *Alert) Hide() {
	a.visible = false
}

// IsVisible returns whether the alert is shown
func (a Alert) IsVisible() bool {
	return a.visible
}

// Message returns the alert body
func (a Alert) Message() string {
	return a.message
}

// View renders the alert
func (a Alert) View() string {
	if !a.visible {
		return ""
	}
	body := lipgloss.NewStyle().Width(44).Foreground(styles.Text).Render(a.message)
	return styles.AlertStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Foreground(styles.Negative).Render(a.title),
		body,
		"",
		styles.DimStyle.Render("press any key"),
	))
}
