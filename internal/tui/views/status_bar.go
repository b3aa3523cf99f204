package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/chatdock/internal/tui/ui"
)

// StatusBar is the bottom line: channel state, bell and clock.
type StatusBar struct {
	*tview.TextView
	theme *ui.Theme
	now   func() time.Time
}

func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)
	return &StatusBar{TextView: tv, theme: theme, now: time.Now}
}

// Update redraws the bar.
func (sb *StatusBar) Update(session, state string, bell, windows int) {
	sb.Clear()
	_, _ = fmt.Fprint(sb, sb.line(session, state, bell, windows))
}

func (sb *StatusBar) line(session, state string, bell, windows int) string {
	bellText := "bell 0"
	if bell > 0 {
		bellText = fmt.Sprintf("[%s::b]bell %d[-:-:-]", ui.Tag(sb.theme.Unread), bell)
	}
	return fmt.Sprintf(" [::b]%s[-:-:-] | [%s]%s[-] | %s | %d windows | %s",
		tview.Escape(session), ui.Tag(sb.theme.StateColor(state)), state, bellText, windows, sb.now().Format("15:04"))
}
