package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/intent"
	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/matheus3301/chatdock/internal/tui/model"
	"github.com/matheus3301/chatdock/internal/unread"
	"github.com/matheus3301/chatdock/internal/windows"
)

var errNotUsed = errors.New("not used in this test")

type stubClient struct {
	mu       sync.Mutex
	loggedIn bool
	convs    []chat.Conversation
	counts   map[string]int
	opened   []string
}

func (s *stubClient) GetStatus(context.Context) (*rpc.StatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &rpc.StatusResponse{Session: "t", State: "CONNECTED", LoggedIn: s.loggedIn, UserID: "me"}, nil
}

func (s *stubClient) ListConversations(context.Context) (*rpc.ConversationsResponse, error) {
	return &rpc.ConversationsResponse{Conversations: s.convs}, nil
}

func (s *stubClient) ListWindows(context.Context) (*rpc.WindowsResponse, error) {
	return &rpc.WindowsResponse{}, nil
}

func (s *stubClient) GetUnread(context.Context) (*rpc.UnreadResponse, error) {
	return &rpc.UnreadResponse{Snapshot: unread.Snapshot{PerConversation: s.counts}}, nil
}

func (s *stubClient) OpenConversation(_ context.Context, id string) (*rpc.WindowsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, id)
	return &rpc.WindowsResponse{Windows: []windows.Window{{ConversationID: id}}}, nil
}

func (s *stubClient) StartChat(context.Context, string) (*rpc.ConversationResponse, error) {
	return nil, errNotUsed
}
func (s *stubClient) CloseWindow(context.Context, string) (*rpc.WindowsResponse, error) {
	return nil, errNotUsed
}
func (s *stubClient) MinimizeWindow(context.Context, string) (*rpc.WindowsResponse, error) {
	return nil, errNotUsed
}
func (s *stubClient) RestoreWindow(context.Context, string) (*rpc.WindowsResponse, error) {
	return nil, errNotUsed
}
func (s *stubClient) SendMessage(context.Context, string, string) (*rpc.MessageResponse, error) {
	return nil, errNotUsed
}
func (s *stubClient) SetTyping(context.Context, string, bool) error { return errNotUsed }
func (s *stubClient) MarkConversationRead(context.Context, string) (*rpc.UnreadResponse, error) {
	return nil, errNotUsed
}
func (s *stubClient) MarkAllRead(context.Context) (*rpc.UnreadResponse, error) {
	return nil, errNotUsed
}
func (s *stubClient) SearchMessages(context.Context, *rpc.SearchRequest) (*rpc.SearchResponse, error) {
	return nil, errNotUsed
}
func (s *stubClient) Watch(context.Context, string) (grpc.ServerStreamingClient[rpc.EventEnvelope], error) {
	return nil, errNotUsed
}

func (s *stubClient) openedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

func TestBellTarget(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	convs := []chat.Conversation{
		{ID: "old", LastMessageAt: t0},
		{ID: "new", LastMessageAt: t0.Add(2 * time.Hour)},
		{ID: "unread-old", LastMessageAt: t0.Add(time.Minute)},
		{ID: "unread-new", LastMessageAt: t0.Add(time.Hour)},
	}
	tests := []struct {
		name string
		st   model.State
		want string
	}{
		{"empty", model.State{}, ""},
		{"latest unread wins", model.State{
			Conversations: convs,
			Unread:        unread.Snapshot{PerConversation: map[string]int{"unread-old": 1, "unread-new": 3}},
			Active:        "old",
		}, "unread-new"},
		{"active window without unread", model.State{Conversations: convs, Active: "old"}, "old"},
		{"most recent conversation", model.State{Conversations: convs}, "new"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bellTarget(tt.st); got != tt.want {
				t.Errorf("bellTarget = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenOnStartWaitsForLogin(t *testing.T) {
	stub := &stubClient{
		convs:  []chat.Conversation{{ID: "c1"}, {ID: "c2"}},
		counts: map[string]int{"c2": 1},
	}
	a := NewApp(Options{Client: stub, Session: "t", OpenOnStart: true})
	defer a.cancel()
	ctx := context.Background()

	if err := a.vm.Refresh(ctx, model.ScopeAll); err != nil {
		t.Fatal(err)
	}
	a.syncIntents()
	if got := a.intents.State(); got != intent.AwaitingReady {
		t.Fatalf("state while logged out = %s", got)
	}
	if len(stub.openedIDs()) != 0 {
		t.Fatal("opened a conversation before login")
	}

	stub.mu.Lock()
	stub.loggedIn = true
	stub.mu.Unlock()
	if err := a.vm.Refresh(ctx, model.ScopeAll); err != nil {
		t.Fatal(err)
	}
	a.syncIntents()
	a.syncIntents()

	if got := stub.openedIDs(); len(got) != 1 || got[0] != "c2" {
		t.Fatalf("opened = %v, want [c2]", got)
	}
	if got := a.intents.State(); got != intent.Consumed {
		t.Errorf("state = %s, want CONSUMED", got)
	}
}

func TestLogoutUnmountsIntents(t *testing.T) {
	stub := &stubClient{loggedIn: true}
	a := NewApp(Options{Client: stub, Session: "t"})
	defer a.cancel()
	ctx := context.Background()

	_ = a.vm.Refresh(ctx, model.ScopeAll)
	a.syncIntents()
	if got := a.intents.State(); got != intent.Ready {
		t.Fatalf("state = %s, want READY", got)
	}

	stub.mu.Lock()
	stub.loggedIn = false
	stub.mu.Unlock()
	_ = a.vm.Refresh(ctx, model.ScopeStatus)
	a.syncIntents()
	a.intents.RequestOpen()
	if got := a.intents.State(); got != intent.AwaitingReady {
		t.Errorf("request after logout = %s, want AWAITING_READY", got)
	}
}

func TestHintsAccentBell(t *testing.T) {
	stub := &stubClient{loggedIn: true}
	a := NewApp(Options{Client: stub, Session: "t"})
	defer a.cancel()

	hints := a.hints(a.list)
	if len(hints) < len(a.list.Hints())+4 {
		t.Fatalf("hints = %+v", hints)
	}
	var cmd, bell bool
	for _, h := range hints {
		switch h.Key {
		case ":":
			cmd = h.Description == "Command"
		case "b":
			bell = true
			if h.Accent {
				t.Error("bell accented with nothing unread")
			}
		}
	}
	if !cmd || !bell {
		t.Errorf("missing global hints in %+v", hints)
	}
}
