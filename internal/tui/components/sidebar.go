package components

import (
	"fmt"
	"strings"

	"github.com/mmcdole/libraryhub/internal/tui/styles"
)

// SidebarEntry is one navigable page
type SidebarEntry struct {
	Key     string // shortcut shown next to the name
	Name    string
	Count   int
	Loaded  bool
	Loading bool
}

// Sidebar renders the page list
type Sidebar struct {
	Entries  []SidebarEntry
	Selected int
	Frame    int
	Width    int
}

// View renders the sidebar
func (s Sidebar) View() string {
	width := s.Width
	if width <= 0 {
		width = 20
	}

	lines := []string{styles.TitleStyle.Render("LibraryHub"), ""}
	for i, e := range s.Entries {
		var status string
		switch {
		case e.Loading:
			status = styles.RenderSpinner(s.Frame)
		case e.Loaded:
			status = fmt.Sprintf("%d", e.Count)
		}
		label := styles.Pad(fmt.Sprintf("%s %s", e.Key, e.Name), width-8)
		row := label + " " + status
		if i == s.Selected {
			lines = append(lines, styles.FocusedItemStyle.Render(row))
		} else {
			lines = append(lines, styles.NormalItemStyle.Render(row))
		}
	}
	return styles.SidebarStyle.Width(width).Render(strings.Join(lines, "\n"))
}
