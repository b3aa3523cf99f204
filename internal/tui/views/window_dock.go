package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/chatdock/internal/tui/ui"
	"github.com/matheus3301/chatdock/internal/windows"
)

// WindowDock is the one-line strip of open chat windows under the
// header: expanded windows first, then minimized ones.
type WindowDock struct {
	*tview.TextView
	theme *ui.Theme
}

func NewWindowDock(theme *ui.Theme) *WindowDock {
	tv := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	tv.SetBackgroundColor(theme.Bg)
	return &WindowDock{TextView: tv, theme: theme}
}

// Update redraws the dock. unread holds per-conversation counts.
func (d *WindowDock) Update(ws []windows.Window, active string, unread map[string]int) {
	d.Clear()
	_, _ = fmt.Fprint(d, d.line(ws, active, unread))
}

func (d *WindowDock) line(ws []windows.Window, active string, unread map[string]int) string {
	if len(ws) == 0 {
		return fmt.Sprintf(" [%s]no open windows[-]", ui.Tag(d.theme.Minimized))
	}
	var open, minimized []string
	for _, w := range ws {
		label := tview.Escape(clean(windowTitle(w), true))
		switch {
		case w.IsLoading():
			label += " …"
		case w.PeerTyping:
			label += " ✎"
		}
		if n := unread[w.ConversationID]; n > 0 {
			label += fmt.Sprintf(" [%s](%d)[-]", ui.Tag(d.theme.Unread), n)
		}
		if w.IsMinimized {
			minimized = append(minimized, fmt.Sprintf("[%s]_%s[-]", ui.Tag(d.theme.Minimized), label))
			continue
		}
		if w.ConversationID == active {
			label = fmt.Sprintf("[%s:%s:b] %s [-:-:-]", ui.Tag(d.theme.CrumbFg), ui.Tag(d.theme.CrumbActiveBg), label)
		} else {
			label = " " + label + " "
		}
		open = append(open, label)
	}
	out := strings.Join(open, "│")
	if len(minimized) > 0 {
		out += "  │ " + strings.Join(minimized, " ")
	}
	return out
}

func windowTitle(w windows.Window) string {
	if w.RecipientName != "" {
		return w.RecipientName
	}
	if w.RecipientID != "" {
		return w.RecipientID
	}
	return w.ConversationID
}
