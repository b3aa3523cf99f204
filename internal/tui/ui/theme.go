package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/matheus3301/chatdock/internal/status"
)

// Theme holds the colors used across views.
type Theme struct {
	Bg          tcell.Color
	Fg          tcell.Color
	Border      tcell.Color
	BorderFocus tcell.Color
	Title       tcell.Color
	Counter     tcell.Color
	Accent      tcell.Color

	HeaderFg tcell.Color
	CursorFg tcell.Color
	CursorBg tcell.Color

	CrumbFg       tcell.Color
	CrumbActiveBg tcell.Color
	CrumbBg       tcell.Color

	Self      tcell.Color
	Peer      tcell.Color
	Typing    tcell.Color
	Unread    tcell.Color
	Minimized tcell.Color
	Loading   tcell.Color

	Connected    tcell.Color
	Connecting   tcell.Color
	Disconnected tcell.Color

	Info   tcell.Color
	Notice tcell.Color
	Warn   tcell.Color
	Err    tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		Bg:          tcell.ColorBlack,
		Fg:          tcell.ColorCadetBlue,
		Border:      tcell.ColorDodgerBlue,
		BorderFocus: tcell.ColorLightSkyBlue,
		Title:       tcell.ColorFuchsia,
		Counter:     tcell.ColorPapayaWhip,
		Accent:      tcell.ColorGold,

		HeaderFg: tcell.ColorWhite,
		CursorFg: tcell.ColorBlack,
		CursorBg: tcell.ColorAqua,

		CrumbFg:       tcell.ColorBlack,
		CrumbActiveBg: tcell.ColorOrange,
		CrumbBg:       tcell.ColorAqua,

		Self:      tcell.ColorLightGreen,
		Peer:      tcell.ColorLightSkyBlue,
		Typing:    tcell.ColorGray,
		Unread:    tcell.ColorGold,
		Minimized: tcell.ColorGray,
		Loading:   tcell.ColorNavajoWhite,

		Connected:    tcell.ColorLightGreen,
		Connecting:   tcell.ColorOrange,
		Disconnected: tcell.ColorOrangeRed,

		Info:   tcell.ColorNavajoWhite,
		Notice: tcell.ColorGold,
		Warn:   tcell.ColorOrange,
		Err:    tcell.ColorOrangeRed,
	}
}

// StateColor picks the color for a channel state name.
func (t *Theme) StateColor(state string) tcell.Color {
	switch status.State(state) {
	case status.Connected:
		return t.Connected
	case status.Connecting:
		return t.Connecting
	default:
		return t.Disconnected
	}
}

// Tag returns c as a tview color tag name.
func Tag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
