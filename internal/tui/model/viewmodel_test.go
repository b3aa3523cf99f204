package model

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/matheus3301/chatdock/internal/store"
	"github.com/matheus3301/chatdock/internal/unread"
	"github.com/matheus3301/chatdock/internal/windows"
)

type fakeClient struct {
	status   rpc.StatusResponse
	convs    []chat.Conversation
	windows  []windows.Window
	unread   unread.Snapshot
	sent     []string
	typing   []bool
	calls    map[string]int
	closeErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		status: rpc.StatusResponse{Session: "default", State: "connected", LoggedIn: true, UserID: "me"},
		convs: []chat.Conversation{
			{ID: "c1", ParticipantA: chat.User{ID: "me"}, ParticipantB: chat.User{ID: "u1", Name: "Alice"}},
			{ID: "c2", ParticipantA: chat.User{ID: "me"}, ParticipantB: chat.User{ID: "u2", Name: "Bob"}},
		},
		unread: unread.Snapshot{Bell: 3, PerConversation: map[string]int{"c1": 2, "c2": 1}},
		calls:  map[string]int{},
	}
}

func (f *fakeClient) GetStatus(context.Context) (*rpc.StatusResponse, error) {
	f.calls["status"]++
	st := f.status
	return &st, nil
}

func (f *fakeClient) ListConversations(context.Context) (*rpc.ConversationsResponse, error) {
	f.calls["conversations"]++
	return &rpc.ConversationsResponse{Conversations: append([]chat.Conversation(nil), f.convs...)}, nil
}

func (f *fakeClient) ListWindows(context.Context) (*rpc.WindowsResponse, error) {
	f.calls["windows"]++
	return &rpc.WindowsResponse{Windows: f.windows}, nil
}

func (f *fakeClient) GetUnread(context.Context) (*rpc.UnreadResponse, error) {
	f.calls["unread"]++
	return &rpc.UnreadResponse{Snapshot: f.unread}, nil
}

func (f *fakeClient) OpenConversation(_ context.Context, id string) (*rpc.WindowsResponse, error) {
	f.windows = append(f.windows, windows.Window{ConversationID: id})
	return &rpc.WindowsResponse{Windows: f.windows}, nil
}

func (f *fakeClient) StartChat(_ context.Context, recipientID string) (*rpc.ConversationResponse, error) {
	id := "new-" + recipientID
	f.windows = append(f.windows, windows.Window{ConversationID: id, RecipientID: recipientID})
	return &rpc.ConversationResponse{Conversation: chat.Conversation{ID: id}}, nil
}

func (f *fakeClient) CloseWindow(_ context.Context, id string) (*rpc.WindowsResponse, error) {
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	var kept []windows.Window
	for _, w := range f.windows {
		if w.ConversationID != id {
			kept = append(kept, w)
		}
	}
	f.windows = kept
	return &rpc.WindowsResponse{Windows: f.windows}, nil
}

func (f *fakeClient) MinimizeWindow(_ context.Context, id string) (*rpc.WindowsResponse, error) {
	return f.setMinimized(id, true), nil
}

func (f *fakeClient) RestoreWindow(_ context.Context, id string) (*rpc.WindowsResponse, error) {
	return f.setMinimized(id, false), nil
}

func (f *fakeClient) setMinimized(id string, v bool) *rpc.WindowsResponse {
	for i := range f.windows {
		if f.windows[i].ConversationID == id {
			f.windows[i].IsMinimized = v
		}
	}
	return &rpc.WindowsResponse{Windows: f.windows}
}

func (f *fakeClient) SendMessage(_ context.Context, id, content string) (*rpc.MessageResponse, error) {
	f.sent = append(f.sent, id+":"+content)
	return &rpc.MessageResponse{Message: chat.Message{ConversationID: id, Content: content}}, nil
}

func (f *fakeClient) SetTyping(_ context.Context, _ string, typing bool) error {
	f.typing = append(f.typing, typing)
	return nil
}

func (f *fakeClient) MarkConversationRead(_ context.Context, id string) (*rpc.UnreadResponse, error) {
	f.unread.Bell -= f.unread.PerConversation[id]
	delete(f.unread.PerConversation, id)
	return &rpc.UnreadResponse{Snapshot: f.unread}, nil
}

func (f *fakeClient) MarkAllRead(context.Context) (*rpc.UnreadResponse, error) {
	f.unread = unread.Snapshot{PerConversation: map[string]int{}}
	return &rpc.UnreadResponse{Snapshot: f.unread}, nil
}

func (f *fakeClient) SearchMessages(_ context.Context, req *rpc.SearchRequest) (*rpc.SearchResponse, error) {
	return &rpc.SearchResponse{Results: []store.SearchResult{{Message: chat.Message{ConversationID: "c1"}, Snippet: req.Query}}}, nil
}

func TestRefreshAll(t *testing.T) {
	c := newFakeClient()
	vm := NewViewModel(c)
	if err := vm.Refresh(context.Background(), ScopeAll); err != nil {
		t.Fatal(err)
	}
	st := vm.State()
	if st.Status.UserID != "me" {
		t.Errorf("user = %q", st.Status.UserID)
	}
	if len(st.Conversations) != 2 {
		t.Fatalf("conversations = %d, want 2", len(st.Conversations))
	}
	if st.Conversations[0].UnreadCount != 2 || st.Conversations[1].UnreadCount != 1 {
		t.Errorf("unread badges = %d,%d", st.Conversations[0].UnreadCount, st.Conversations[1].UnreadCount)
	}
	if st.Status.Bell != 3 {
		t.Errorf("bell = %d, want 3", st.Status.Bell)
	}
}

func TestRefreshLoggedOutClearsState(t *testing.T) {
	c := newFakeClient()
	vm := NewViewModel(c)
	_ = vm.Refresh(context.Background(), ScopeAll)
	_ = vm.Open(context.Background(), "c1")

	c.status.LoggedIn = false
	if err := vm.Refresh(context.Background(), ScopeStatus); err != nil {
		t.Fatal(err)
	}
	st := vm.State()
	if len(st.Conversations) != 0 || len(st.Windows) != 0 || st.Active != "" {
		t.Errorf("state not cleared: %+v", st)
	}
	before := c.calls["conversations"]
	_ = vm.Refresh(context.Background(), ScopeConversations)
	if c.calls["conversations"] != before {
		t.Error("conversations fetched while logged out")
	}
}

func TestActiveFollowsWindowLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	vm := NewViewModel(c)
	_ = vm.Refresh(ctx, ScopeAll)

	_ = vm.Open(ctx, "c1")
	_ = vm.Open(ctx, "c2")
	if got := vm.State().Active; got != "c2" {
		t.Fatalf("active = %q, want c2", got)
	}
	if err := vm.Minimize(ctx); err != nil {
		t.Fatal(err)
	}
	if got := vm.State().Active; got != "c1" {
		t.Fatalf("after minimize active = %q, want c1", got)
	}
	if err := vm.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if got := vm.State().Active; got != "" {
		t.Fatalf("after close active = %q, want none", got)
	}
	if err := vm.Restore(ctx, "c2"); err != nil {
		t.Fatal(err)
	}
	w, ok := vm.State().ActiveWindow()
	if !ok || w.ConversationID != "c2" || w.IsMinimized {
		t.Fatalf("active window = %+v, %v", w, ok)
	}
}

func TestCloseWithoutActiveWindow(t *testing.T) {
	vm := NewViewModel(newFakeClient())
	if err := vm.Close(context.Background()); !errors.Is(err, windows.ErrWindowNotFound) {
		t.Errorf("Close = %v, want ErrWindowNotFound", err)
	}
	if err := vm.Send(context.Background(), "hi"); !errors.Is(err, windows.ErrWindowNotFound) {
		t.Errorf("Send = %v, want ErrWindowNotFound", err)
	}
}

func TestSendAndTypingUseActiveWindow(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	vm := NewViewModel(c)
	_ = vm.Refresh(ctx, ScopeAll)
	_ = vm.Open(ctx, "c1")

	if err := vm.SetTyping(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := vm.Send(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if len(c.sent) != 1 || c.sent[0] != "c1:hello" {
		t.Errorf("sent = %v", c.sent)
	}
	if len(c.typing) != 1 || !c.typing[0] {
		t.Errorf("typing = %v", c.typing)
	}
}

func TestStartChatActivatesConversation(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	vm := NewViewModel(c)
	_ = vm.Refresh(ctx, ScopeAll)

	if err := vm.StartChat(ctx, "u9"); err != nil {
		t.Fatal(err)
	}
	if got := vm.State().Active; got != "new-u9" {
		t.Errorf("active = %q, want new-u9", got)
	}
}

func TestMarkReadUpdatesBadges(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	vm := NewViewModel(c)
	_ = vm.Refresh(ctx, ScopeAll)

	if err := vm.MarkRead(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	st := vm.State()
	if st.Status.Bell != 1 || st.Conversations[0].UnreadCount != 0 {
		t.Errorf("after MarkRead bell=%d c1=%d", st.Status.Bell, st.Conversations[0].UnreadCount)
	}
	if err := vm.MarkAllRead(ctx); err != nil {
		t.Fatal(err)
	}
	st = vm.State()
	if st.Status.Bell != 0 || st.Conversations[1].UnreadCount != 0 {
		t.Errorf("after MarkAllRead bell=%d c2=%d", st.Status.Bell, st.Conversations[1].UnreadCount)
	}
}

func TestCycleSkipsMinimized(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	c.windows = []windows.Window{
		{ConversationID: "a"},
		{ConversationID: "b", IsMinimized: true},
		{ConversationID: "c"},
	}
	vm := NewViewModel(c)
	_ = vm.Refresh(ctx, ScopeAll)

	if got := vm.State().Active; got != "c" {
		t.Fatalf("initial active = %q, want c", got)
	}
	if got := vm.Cycle(1); got != "a" {
		t.Errorf("Cycle(1) = %q, want a", got)
	}
	if got := vm.Cycle(-1); got != "c" {
		t.Errorf("Cycle(-1) = %q, want c", got)
	}
}

func TestScopeFor(t *testing.T) {
	tests := []struct {
		kind string
		want Scope
	}{
		{bus.SessionCredentialChanged, ScopeAll},
		{bus.WindowOpened, ScopeWindows},
		{bus.MessageAppended, ScopeWindows},
		{bus.HistoryLoaded, ScopeWindows},
		{bus.TypingChanged, ScopeWindows},
		{bus.MessageReceived, ScopeConversations},
		{bus.ConversationsSynced, ScopeConversations},
		{bus.UnreadChanged, ScopeUnread | ScopeConversations},
		{bus.NotificationReceived, 0},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := ScopeFor(tt.kind); got != tt.want {
				t.Errorf("ScopeFor(%q) = %b, want %b", tt.kind, got, tt.want)
			}
		})
	}
}
