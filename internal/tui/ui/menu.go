package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// menuRows is how many hints fit in one header column.
const menuRows = 5

// Menu lays the active key hints out in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update redraws the menu for hints.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	cols := (len(hints) + menuRows - 1) / menuRows
	for row := range menuRows {
		for col := range cols {
			i := col*menuRows + row
			if i >= len(hints) {
				break
			}
			h := hints[i]
			color := m.theme.Border
			if h.Accent {
				color = m.theme.Accent
			}
			_, _ = fmt.Fprintf(m, "[%s::b]%-9s[-:-:-] %-16s", Tag(color), "<"+h.Key+">", h.Description)
		}
		_, _ = fmt.Fprintln(m)
	}
}
