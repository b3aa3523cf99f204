package views

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/store"
	"github.com/matheus3301/chatdock/internal/tui/ui"
	"github.com/matheus3301/chatdock/internal/windows"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		oneLine bool
		want    string
	}{
		{"plain", "hello", false, "hello"},
		{"skin tone", "👍\U0001F3FB", false, "👍"},
		{"zwj", "a\u200db", false, "ab"},
		{"variation selector", "❤️", false, "❤"},
		{"control", "a\x1b[31mb\x07", false, "a[31mb"},
		{"keeps newline", "a\nb", false, "a\nb"},
		{"flattens newline", "a\nb\tc", true, "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clean(tt.in, tt.oneLine); got != tt.want {
				t.Errorf("clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStamp(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.Local)
	if got := stamp(time.Date(2026, 3, 10, 9, 5, 0, 0, time.Local), now); got != "09:05" {
		t.Errorf("today = %q", got)
	}
	if got := stamp(time.Date(2026, 3, 9, 9, 5, 0, 0, time.Local), now); got != "Mar 09" {
		t.Errorf("yesterday = %q", got)
	}
	if got := stamp(time.Time{}, now); got != "" {
		t.Errorf("zero = %q", got)
	}
}

func conversations() []chat.Conversation {
	me := chat.User{ID: "me", Name: "Me"}
	return []chat.Conversation{
		{ID: "c1", ParticipantA: me, ParticipantB: chat.User{ID: "u1", Name: "Alice"}, LastMessageText: "lunch?", UnreadCount: 2},
		{ID: "c2", ParticipantA: chat.User{ID: "u2", Name: "Bob"}, ParticipantB: me, LastMessageText: "see you"},
		{ID: "c3", ParticipantA: me, ParticipantB: chat.User{ID: "u3", Name: "Carol"}, LastMessageText: "Lunch is ready"},
	}
}

func TestConversationListFilter(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	cl.Update(conversations(), "me")

	if got := cl.ByIndex(2); got != "c2" {
		t.Fatalf("ByIndex(2) = %q, want c2", got)
	}
	cl.SetFilter("LUNCH")
	if got := cl.ByIndex(1); got != "c1" {
		t.Errorf("filtered ByIndex(1) = %q, want c1", got)
	}
	if got := cl.ByIndex(2); got != "c3" {
		t.Errorf("filtered ByIndex(2) = %q, want c3", got)
	}
	if got := cl.ByIndex(3); got != "" {
		t.Errorf("filtered ByIndex(3) = %q, want none", got)
	}

	cl.SetFilter("bob")
	if got := cl.ByIndex(1); got != "c2" {
		t.Errorf("peer filter = %q, want c2", got)
	}
	if got := cl.GetCell(1, 1).Text; !strings.Contains(got, "Bob") {
		t.Errorf("peer cell = %q, want Bob", got)
	}
}

func TestConversationListUnreadBadge(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	cl.Update(conversations(), "me")
	if got := cl.GetCell(1, 3).Text; !strings.Contains(got, "2") {
		t.Errorf("badge = %q", got)
	}
	if got := strings.TrimSpace(cl.GetCell(2, 3).Text); got != "" {
		t.Errorf("read row badge = %q", got)
	}
}

func TestWindowDockLine(t *testing.T) {
	d := NewWindowDock(ui.DefaultTheme())
	ws := []windows.Window{
		{ConversationID: "c1", RecipientName: "Alice", State: windows.Ready},
		{ConversationID: "c2", RecipientName: "Bob", State: windows.Loading},
		{ConversationID: "c3", RecipientName: "Carol", State: windows.Ready, IsMinimized: true, PeerTyping: true},
	}
	line := d.line(ws, "c1", map[string]int{"c3": 4})

	for _, want := range []string{"Alice", "Bob …", "_Carol ✎", "(4)"} {
		if !strings.Contains(line, want) {
			t.Errorf("dock %q missing %q", line, want)
		}
	}
	if strings.Index(line, "Carol") < strings.Index(line, "Bob") {
		t.Error("minimized window listed before expanded ones")
	}
	if got := d.line(nil, "", nil); !strings.Contains(got, "no open windows") {
		t.Errorf("empty dock = %q", got)
	}
}

func TestMessageThreadRender(t *testing.T) {
	mt := NewMessageThread(ui.DefaultTheme())
	mt.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local) }

	loading := windows.Window{ConversationID: "c1", State: windows.Loading}
	if got := mt.render(loading, "me"); !strings.Contains(got, "loading") {
		t.Errorf("loading render = %q", got)
	}

	w := windows.Window{
		ConversationID: "c1",
		State:          windows.Ready,
		Messages: []chat.Message{
			{ID: "m1", SenderID: "u1", Sender: chat.User{Name: "Alice"}, Content: "hi [red]there"},
			{ID: "m2", SenderID: "me", Content: "hello"},
		},
	}
	got := mt.render(w, "me")
	if !strings.Contains(got, "Alice") || !strings.Contains(got, "You") {
		t.Errorf("render = %q", got)
	}
	if !strings.Contains(got, "[red[]") {
		t.Errorf("message content not escaped: %q", got)
	}
	if strings.Index(got, "hi") > strings.Index(got, "hello") {
		t.Error("messages out of order")
	}
}

func TestMessageThreadTypingSignals(t *testing.T) {
	mt := NewMessageThread(ui.DefaultTheme())
	var signals []bool
	var sent []string
	mt.SetOnTyping(func(v bool) { signals = append(signals, v) })
	mt.SetOnSend(func(s string) { sent = append(sent, s) })

	mt.changed("h")
	mt.changed("he")
	mt.changed("hey")
	mt.composer.SetText("hey")
	mt.done(tcell.KeyEnter)

	if len(sent) != 1 || sent[0] != "hey" {
		t.Errorf("sent = %v", sent)
	}
	if len(signals) != 2 || !signals[0] || signals[1] {
		t.Errorf("typing signals = %v, want [true false]", signals)
	}
}

func TestSearchViewSelected(t *testing.T) {
	sv := NewSearchView(ui.DefaultTheme())
	sv.Update("lunch", []store.SearchResult{
		{Message: chat.Message{ID: "m1", ConversationID: "c1"}, Snippet: "[lunch]?"},
		{Message: chat.Message{ID: "m2", ConversationID: "c3"}, Snippet: "[Lunch] is ready"},
	})
	sv.results.Select(2, 0)
	if got := sv.Selected(); got != "c3" {
		t.Errorf("Selected = %q, want c3", got)
	}
}

func TestStatusBarLine(t *testing.T) {
	sb := NewStatusBar(ui.DefaultTheme())
	sb.now = func() time.Time { return time.Date(2026, 3, 10, 8, 30, 0, 0, time.Local) }
	got := sb.line("work", "CONNECTED", 3, 2)
	for _, want := range []string{"work", "CONNECTED", "bell 3", "2 windows", "08:30"} {
		if !strings.Contains(got, want) {
			t.Errorf("line %q missing %q", got, want)
		}
	}
}
