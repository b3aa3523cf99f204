package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/chatdock/internal/tui/ui"
	"github.com/matheus3301/chatdock/internal/windows"
)

// MessageThread shows the active window's messages above a composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	convID   string
	typing   bool
	onSend   func(text string)
	onTyping func(typing bool)
	now      func() time.Time
}

func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.Border)
	messages.SetBackgroundColor(theme.Bg)
	messages.SetTextColor(theme.Fg)
	messages.SetTitleColor(theme.Title)

	composer := tview.NewInputField().SetLabel(" > ").SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.Border)
	composer.SetBackgroundColor(theme.Bg)
	composer.SetFieldBackgroundColor(theme.Bg)
	composer.SetFieldTextColor(theme.Fg)
	composer.SetLabelColor(theme.Accent)

	mt := &MessageThread{
		Flex: tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(messages, 0, 1, true).
			AddItem(composer, 3, 0, false),
		theme:    theme,
		messages: messages,
		composer: composer,
		now:      time.Now,
	}
	composer.SetChangedFunc(mt.changed)
	composer.SetDoneFunc(mt.done)
	return mt
}

func (mt *MessageThread) Name() string { return "thread" }

func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "tab", Description: "Next window"},
		{Key: "m", Description: "Minimize"},
		{Key: "x", Description: "Close"},
		{Key: "esc", Description: "Back"},
	}
}

func (mt *MessageThread) SetOnSend(fn func(string)) { mt.onSend = fn }
func (mt *MessageThread) SetOnTyping(fn func(bool)) { mt.onTyping = fn }

func (mt *MessageThread) Messages() tview.Primitive { return mt.messages }
func (mt *MessageThread) Composer() tview.Primitive { return mt.composer }

// ConversationID is the window currently drawn.
func (mt *MessageThread) ConversationID() string { return mt.convID }

// Update draws w. Switching windows clears the composer.
func (mt *MessageThread) Update(w windows.Window, selfID string) {
	if w.ConversationID != mt.convID {
		mt.convID = w.ConversationID
		mt.composer.SetText("")
	}
	title := " " + tview.Escape(clean(windowTitle(w), true)) + " "
	if w.PeerTyping {
		title += fmt.Sprintf("[%s]typing…[-] ", ui.Tag(mt.theme.Typing))
	}
	mt.messages.SetTitle(title)
	mt.messages.Clear()
	_, _ = fmt.Fprint(mt.messages, mt.render(w, selfID))
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) render(w windows.Window, selfID string) string {
	if w.IsLoading() {
		return fmt.Sprintf("\n  [%s]loading history…[-]", ui.Tag(mt.theme.Loading))
	}
	if len(w.Messages) == 0 {
		return fmt.Sprintf("\n  [%s]no messages yet[-]", ui.Tag(mt.theme.Minimized))
	}
	var b strings.Builder
	now := mt.now()
	for _, m := range w.Messages {
		name, color := m.Sender.Name, mt.theme.Peer
		if name == "" {
			name = m.SenderID
		}
		if m.SenderID == selfID {
			name, color = "You", mt.theme.Self
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			ui.Tag(color), tview.Escape(clean(name, true)), stamp(m.CreatedAt, now),
			tview.Escape(clean(m.Content, false)))
	}
	return b.String()
}

// changed reports typing when the composer goes from empty to non-empty
// and back.
func (mt *MessageThread) changed(text string) {
	typing := strings.TrimSpace(text) != ""
	if typing == mt.typing {
		return
	}
	mt.typing = typing
	if mt.onTyping != nil {
		mt.onTyping(typing)
	}
}

func (mt *MessageThread) done(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	text := strings.TrimSpace(mt.composer.GetText())
	if text == "" || mt.onSend == nil {
		return
	}
	mt.onSend(text)
	mt.composer.SetText("")
}
