package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/chatdock/internal/tui/ui"
)

// helpSections lists every key and command; the app's bindings mirror it.
var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Global", [][2]string{
		{":", "command prompt"},
		{"b", "open the most recent unread conversation"},
		{"R", "mark everything read"},
		{"tab / shift-tab", "cycle open windows"},
		{"?", "this help"},
		{"ctrl-c", "quit"},
	}},
	{"Conversations", [][2]string{
		{"enter", "open window"},
		{"1-9", "open the nth row"},
		{"r", "mark the row read"},
		{"/", "filter by peer or preview"},
	}},
	{"Window", [][2]string{
		{"i", "focus composer, enter sends"},
		{"m", "minimize"},
		{"x", "close"},
		{"esc", "back to the list"},
	}},
	{"Commands", [][2]string{
		{":chat <user-id>", "start or open a chat"},
		{":open <conversation-id>", "open a window"},
		{":search <query>  :s", "search the archive"},
		{":min  :max <id>", "minimize active, restore id"},
		{":close", "close the active window"},
		{":read-all  :ra", "mark everything read"},
		{":help  :h", "this help"},
		{":quit  :q", "quit"},
	}},
}

// HelpView lists keys and commands.
type HelpView struct {
	*tview.TextView
}

func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.Border)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetTextColor(theme.Fg)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.Title)

	var b strings.Builder
	key := ui.Tag(theme.Accent)
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, "  [%s]%-26s[-] %s\n", key, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(tv, b.String())
	return &HelpView{TextView: tv}
}

func (hv *HelpView) Name() string { return "help" }

func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "esc", Description: "Back"}}
}
