package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// NewLogo renders the product mark shown in the header.
func NewLogo(theme *Theme) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetBorderPadding(1, 0, 1, 0)

	title := Tag(theme.Title)
	_, _ = fmt.Fprintf(tv,
		"[%[1]s::b] ┌─┐┬ ┬┌─┐┌┬┐[-:-:-]\n"+
			"[%[1]s::b] │  ├─┤├─┤ │ [-:-:-]\n"+
			"[%[1]s::b] └─┘┴ ┴┴ ┴ ┴ [-:-:-]\n"+
			"[%[2]s]   chatdock[-:-:-]",
		title, Tag(theme.Fg),
	)
	return tv
}
