package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/tui/ui"
)

// ConversationList is the root page: every conversation with its peer,
// preview and unread badge.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	all     []chat.Conversation
	visible []chat.Conversation
	selfID  string
	filter  string
	now     func() time.Time
}

func NewConversationList(theme *ui.Theme) *ConversationList {
	t := tview.NewTable().SetSelectable(true, false).SetFixed(1, 0)
	t.SetBorder(true)
	t.SetBorderColor(theme.Border)
	t.SetBackgroundColor(theme.Bg)
	t.SetTitleColor(theme.Title)
	t.SetSelectedStyle(tcell.StyleDefault.Foreground(theme.CursorFg).Background(theme.CursorBg))
	return &ConversationList{Table: t, theme: theme, now: time.Now}
}

func (cl *ConversationList) Name() string { return "conversations" }

func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "enter", Description: "Open"},
		{Key: "1-9", Description: "Jump"},
		{Key: "r", Description: "Mark read"},
		{Key: "/", Description: "Filter"},
	}
}

// Update replaces the rows. selfID picks which participant is the peer.
func (cl *ConversationList) Update(convs []chat.Conversation, selfID string) {
	cl.all, cl.selfID = convs, selfID
	cl.render()
}

// SetFilter keeps rows whose peer name or preview contains f.
func (cl *ConversationList) SetFilter(f string) {
	cl.filter = f
	cl.render()
}

func (cl *ConversationList) Filter() string { return cl.filter }

// Selected returns the conversation under the cursor.
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the id of the nth visible row, counting from 1.
func (cl *ConversationList) ByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].ID
}

func (cl *ConversationList) matches(c chat.Conversation) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	peer := c.Peer(cl.selfID)
	return strings.Contains(strings.ToLower(peer.Name), f) ||
		strings.Contains(strings.ToLower(peer.ID), f) ||
		strings.Contains(strings.ToLower(c.LastMessageText), f)
}

func (cl *ConversationList) render() {
	cl.Clear()
	for col, h := range []string{"#", "PEER", "LAST MESSAGE", "UNREAD", "TIME"} {
		cl.SetCell(0, col, tview.NewTableCell(" "+h).
			SetSelectable(false).
			SetTextColor(cl.theme.HeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(map[int]int{1: 1, 2: 3}[col]))
	}

	cl.visible = cl.visible[:0]
	now := cl.now()
	for _, c := range cl.all {
		if !cl.matches(c) {
			continue
		}
		cl.visible = append(cl.visible, c)
		row := len(cl.visible)

		peer := c.Peer(cl.selfID)
		name := peer.Name
		if name == "" {
			name = peer.ID
		}
		fg := cl.theme.Fg
		badge := ""
		if c.UnreadCount > 0 {
			fg = cl.theme.Unread
			badge = fmt.Sprintf("● %d", c.UnreadCount)
		}
		cells := []string{
			fmt.Sprint(row),
			tview.Escape(clean(name, true)),
			tview.Escape(clean(c.LastMessageText, true)),
			badge,
			stamp(c.LastMessageAt, now),
		}
		for col, text := range cells {
			cell := tview.NewTableCell(" " + text).SetTextColor(fg)
			switch col {
			case 1:
				cell.SetExpansion(1)
			case 2:
				cell.SetExpansion(3).SetMaxWidth(60)
			}
			cl.SetCell(row, col, cell)
		}
	}

	title := fmt.Sprintf(" Conversations [%s](%d)[-] ", ui.Tag(cl.theme.Counter), len(cl.all))
	if cl.filter != "" {
		title = fmt.Sprintf(" Conversations [%s](%d/%d)[-] /%s ", ui.Tag(cl.theme.Counter), len(cl.visible), len(cl.all), tview.Escape(cl.filter))
	}
	cl.SetTitle(title)
}
