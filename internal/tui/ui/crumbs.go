package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs shows the page stack, newest last.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update redraws the trail for stack.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	fg := Tag(c.theme.CrumbFg)
	parts := make([]string, len(stack))
	for i, name := range stack {
		bg, attr := Tag(c.theme.CrumbBg), ""
		if i == len(stack)-1 {
			bg, attr = Tag(c.theme.CrumbActiveBg), "b"
		}
		parts[i] = fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", fg, bg, attr, name)
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}
