// Package styles holds the console palette and shared lipgloss styles.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Adaptive so the console stays readable on light terminals.
var (
	Accent    = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	Surface   = lipgloss.AdaptiveColor{Light: "#F1F5F9", Dark: "#0F172A"}
	Highlight = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"}
	Muted     = lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#64748B"}
	Subtle    = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#94A3B8"}
	Text      = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#F8FAFC"}
	Positive  = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	Negative  = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
)

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// framed is a rounded box on the surface color
func framed(border lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Background(Surface).
		Padding(1, 2)
}

// Panels
var (
	ActiveBorder   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Accent)
	InactiveBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted)
	SidebarStyle   = lipgloss.NewStyle().Padding(1, 2)
)

// Text
var (
	TitleStyle   = fg(Text).Bold(true)
	HeaderStyle  = fg(Subtle).Bold(true).Underline(true)
	DimStyle     = fg(Muted)
	AccentStyle  = fg(Accent)
	ErrorStyle   = fg(Negative)
	SuccessStyle = fg(Positive)

	AvailableStyle = fg(Positive)
	BorrowedStyle  = fg(Negative)
)

// Rows. The cursor row is highlighted when its table has focus and only
// tinted otherwise.
var (
	NormalItemStyle   = fg(Subtle).Padding(0, 1)
	FocusedItemStyle  = fg(Accent).Bold(true).Padding(0, 1)
	SelectedItemStyle = fg(Text).Background(Highlight).Padding(0, 1)
)

// Modals
var (
	ModalStyle      = framed(Accent)
	AlertStyle      = framed(Negative)
	ModalTitleStyle = fg(Text).Bold(true).MarginBottom(1)
)

// Hints, spinner and filter prompt
var (
	HelpKeyStyle      = fg(Accent)
	HelpDescStyle     = fg(Muted)
	SpinnerStyle      = fg(Accent)
	FilterPromptStyle = fg(Accent).Bold(true)

	SpinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
)

// Truncate cuts s to width display cells, ending in "..." when it had to cut
func Truncate(s string, width int) string {
	switch {
	case width <= 0:
		return ""
	case lipgloss.Width(s) <= width:
		return s
	}
	runes := []rune(s)
	if width <= 3 {
		return string(runes[:min(width, len(runes))])
	}
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// Pad pads or truncates a string to exactly width display cells
func Pad(s string, width int) string {
	s = Truncate(s, width)
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// RenderSpinner renders one frame of the loading spinner
func RenderSpinner(frame int) string {
	return SpinnerStyle.Render(SpinnerFrames[frame%len(SpinnerFrames)])
}

// Hint renders a "key description" pair for footers
func Hint(key, desc string) string {
	return HelpKeyStyle.Render(key) + HelpDescStyle.Render(" "+desc)
}
