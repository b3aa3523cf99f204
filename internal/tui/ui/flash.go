package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// FlashLevel is the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashNotice
	FlashWarn
	FlashErr
)

var flashTTL = map[FlashLevel]time.Duration{
	FlashInfo:   4 * time.Second,
	FlashNotice: 6 * time.Second,
	FlashWarn:   8 * time.Second,
	FlashErr:    10 * time.Second,
}

// FlashMessage is one flash line with its expiry.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// Flash holds the current transient message. Setters are safe from any
// goroutine; the app drains Changes to redraw.
type Flash struct {
	mu      sync.Mutex
	current FlashMessage
	changes chan struct{}
	now     func() time.Time
}

// NewFlash creates an empty flash model.
func NewFlash() *Flash {
	return &Flash{changes: make(chan struct{}, 1), now: time.Now}
}

func (f *Flash) Info(msg string)                    { f.set(FlashInfo, msg) }
func (f *Flash) Warn(msg string)                    { f.set(FlashWarn, msg) }
func (f *Flash) Err(err error)                      { f.set(FlashErr, err.Error()) }
func (f *Flash) Infof(format string, args ...any)   { f.set(FlashInfo, fmt.Sprintf(format, args...)) }
func (f *Flash) Noticef(format string, args ...any) { f.set(FlashNotice, fmt.Sprintf(format, args...)) }

func (f *Flash) set(level FlashLevel, msg string) {
	f.mu.Lock()
	f.current = FlashMessage{Text: msg, Level: level, Expires: f.now().Add(flashTTL[level])}
	f.mu.Unlock()
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

// Current returns the live message, or false once it expired.
func (f *Flash) Current() (FlashMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current.Text == "" || f.now().After(f.current.Expires) {
		return FlashMessage{}, false
	}
	return f.current, true
}

// Changes signals whenever a new message is set.
func (f *Flash) Changes() <-chan struct{} {
	return f.changes
}

// FlashBar draws the current flash message.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates the flash line.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	return &FlashBar{TextView: tv, theme: theme}
}

// Show renders msg, or clears the bar when ok is false.
func (fb *FlashBar) Show(msg FlashMessage, ok bool) {
	fb.Clear()
	if !ok {
		return
	}
	color := fb.theme.Info
	switch msg.Level {
	case FlashNotice:
		color = fb.theme.Notice
	case FlashWarn:
		color = fb.theme.Warn
	case FlashErr:
		color = fb.theme.Err
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", Tag(color), tview.Escape(msg.Text))
}
