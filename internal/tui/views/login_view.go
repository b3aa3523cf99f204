package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/chatdock/internal/tui/ui"
)

// LoginView is shown while the daemon has no credential. The daemon
// picks up a new credential file on its own, so the view only explains
// how to provide one.
type LoginView struct {
	*tview.TextView
	theme *ui.Theme
}

func NewLoginView(theme *ui.Theme) *LoginView {
	tv := tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.Border)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetTextColor(theme.Fg)
	tv.SetTitle(" Signed out ")
	tv.SetTitleColor(theme.Title)
	lv := &LoginView{TextView: tv, theme: theme}
	lv.Update("default", "")
	return lv
}

func (lv *LoginView) Name() string { return "login" }

func (lv *LoginView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "ctrl-c", Description: "Quit"}}
}

// Update redraws the instructions for session, with lastErr when the
// previous credential was rejected.
func (lv *LoginView) Update(session, lastErr string) {
	lv.Clear()
	key := ui.Tag(lv.theme.Accent)
	_, _ = fmt.Fprintf(lv, "\n\nNo credential for session [%s]%s[-].\n\n", key, tview.Escape(session))
	_, _ = fmt.Fprintf(lv, "Run [%s::b]chatctl --session %s login <token>[-:-:-] in another terminal.\n", key, tview.Escape(session))
	_, _ = fmt.Fprint(lv, "This screen updates once the daemon connects.\n")
	if lastErr != "" {
		_, _ = fmt.Fprintf(lv, "\n[%s]%s[-]\n", ui.Tag(lv.theme.Err), tview.Escape(lastErr))
	}
}
