package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// HeaderData is what the session panel shows.
type HeaderData struct {
	Session   string
	UserID    string
	State     string
	LastError string
	Bell      int
	Windows   int
	Minimized int
	Uptime    time.Duration
}

// SessionPanel shows the daemon session in the header.
type SessionPanel struct {
	*tview.TextView
	theme *Theme
}

func NewSessionPanel(theme *Theme) *SessionPanel {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &SessionPanel{TextView: tv, theme: theme}
}

// Update redraws the panel.
func (s *SessionPanel) Update(d HeaderData) {
	s.Clear()
	label, value := Tag(s.theme.Fg), Tag(s.theme.Counter)
	row := func(name, color, v string) {
		_, _ = fmt.Fprintf(s, "[%s::b]%-8s[-:-:-] [%s]%s[-]\n", label, name+":", color, tview.Escape(v))
	}

	user := d.UserID
	if user == "" {
		user = "-"
	}
	state := d.State
	if d.LastError != "" {
		state += " (" + d.LastError + ")"
	}
	bellColor := value
	if d.Bell > 0 {
		bellColor = Tag(s.theme.Unread)
	}

	row("Session", value, d.Session)
	row("User", value, user)
	row("Channel", Tag(s.theme.StateColor(d.State)), state)
	row("Bell", bellColor, fmt.Sprint(d.Bell))
	row("Windows", value, fmt.Sprintf("%d (%d min)", d.Windows, d.Minimized))
	row("Uptime", value, FormatUptime(d.Uptime))
}

// FormatUptime renders d as hours and minutes.
func FormatUptime(d time.Duration) string {
	h, m := int(d.Hours()), int(d.Minutes())%60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
