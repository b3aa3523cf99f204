package messenger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatdock/internal/auth"
	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/channel"
	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/status"
	"github.com/matheus3301/chatdock/internal/store"
	"github.com/matheus3301/chatdock/internal/windows"
)

var errDown = errors.New("backend down")

type fakeBackend struct {
	mu       sync.Mutex
	token    string
	count    int
	countErr error
	convs    []chat.Conversation
	convErr  error
	history  map[string][]chat.Message
	created  chat.Conversation
	reads    []string
	sent     []string
}

func (f *fakeBackend) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeBackend) History(_ context.Context, id string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[id], nil
}

func (f *fakeBackend) MarkConversationRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, id)
	return nil
}

func (f *fakeBackend) MarkAllRead(context.Context) error { return nil }

func (f *fakeBackend) SendMessage(_ context.Context, recipientID, content string) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recipientID+":"+content)
	return chat.Message{ID: "srv-1", Content: content, SenderID: "me", CreatedAt: time.Now()}, nil
}

func (f *fakeBackend) UnreadCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.countErr
}

func (f *fakeBackend) ListConversations(context.Context) ([]chat.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.Conversation(nil), f.convs...), f.convErr
}

func (f *fakeBackend) FindOrCreateConversation(_ context.Context, recipientID string) (chat.Conversation, error) {
	if f.created.ID == "" {
		return chat.Conversation{}, errDown
	}
	return f.created, nil
}

type fakeChannel struct {
	mu          sync.Mutex
	tokens      []string
	disconnects int
	frames      []any
}

func (f *fakeChannel) Connect(_ context.Context, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
}

func (f *fakeChannel) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeChannel) Emit(_ string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, payload)
}

func (f *fakeChannel) State() status.State { return status.Connected }

type fakeArchive struct {
	bell  int
	convs []chat.Conversation
}

func (f *fakeArchive) SaveBell(n int) error                           { f.bell = n; return nil }
func (f *fakeArchive) LoadBell() (int, bool, error)                   { return f.bell, f.bell > 0, nil }
func (f *fakeArchive) Conversations(int) ([]chat.Conversation, error) { return f.convs, nil }
func (f *fakeArchive) Search(string, string, int) ([]store.SearchResult, error) {
	return nil, nil
}

var (
	me    = auth.Credential{Token: "tok-me", UserID: "me", Name: "Me"}
	alice = chat.Conversation{
		ID:           "c1",
		ParticipantA: chat.User{ID: "me", Name: "Me"},
		ParticipantB: chat.User{ID: "alice", Name: "Alice"},
	}
)

func newTestMessenger(t *testing.T, be *fakeBackend, arch Archive) (*Messenger, *fakeChannel, *bus.Bus) {
	t.Helper()
	ch := &fakeChannel{}
	b := bus.New()
	m := New(Options{
		Backend:      be,
		Channel:      ch,
		Archive:      arch,
		Bus:          b,
		Limits:       windows.DefaultLimits,
		PollInterval: time.Hour,
	})
	m.Start(context.Background())
	t.Cleanup(m.Stop)
	return m, ch, b
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestOperationsRequireCredential(t *testing.T) {
	m, _, _ := newTestMessenger(t, &fakeBackend{}, nil)
	ctx := context.Background()

	if err := m.Open(ctx, alice); !errors.Is(err, ErrLoggedOut) {
		t.Errorf("Open = %v, want ErrLoggedOut", err)
	}
	if _, err := m.Send(ctx, "c1", "hi"); !errors.Is(err, ErrLoggedOut) {
		t.Errorf("Send = %v, want ErrLoggedOut", err)
	}
	if _, err := m.Windows(ctx); !errors.Is(err, ErrLoggedOut) {
		t.Errorf("Windows = %v, want ErrLoggedOut", err)
	}
	if _, err := m.StartChat(ctx, "alice"); !errors.Is(err, ErrLoggedOut) {
		t.Errorf("StartChat = %v, want ErrLoggedOut", err)
	}
	if err := m.MarkAllRead(ctx); !errors.Is(err, ErrLoggedOut) {
		t.Errorf("MarkAllRead = %v, want ErrLoggedOut", err)
	}
}

func TestSetCredentialConnectsAndPolls(t *testing.T) {
	be := &fakeBackend{count: 2, convs: []chat.Conversation{alice}}
	m, ch, b := newTestMessenger(t, be, nil)
	events, unsub := b.Subscribe(bus.SessionCredentialChanged, 1)
	defer unsub()
	ctx := context.Background()

	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}
	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}

	ch.mu.Lock()
	tokens := append([]string(nil), ch.tokens...)
	ch.mu.Unlock()
	if len(tokens) != 1 || tokens[0] != "tok-me" {
		t.Errorf("channel connects = %v, want one with tok-me", tokens)
	}
	be.mu.Lock()
	token := be.token
	be.mu.Unlock()
	if token != "tok-me" {
		t.Errorf("backend token = %q", token)
	}
	select {
	case evt := <-events:
		if st := evt.Payload.(Status); !st.LoggedIn || st.UserID != "me" {
			t.Errorf("credential event = %+v", st)
		}
	default:
		t.Error("no credential event")
	}

	eventually(t, "first poll", func() bool {
		s, err := m.Unread(ctx)
		return err == nil && s.Bell == 2
	})
	st, err := m.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.LoggedIn || st.State != status.Connected {
		t.Errorf("status = %+v", st)
	}
}

func TestIncomingMessageCountedOnce(t *testing.T) {
	be := &fakeBackend{convs: []chat.Conversation{alice}}
	m, _, _ := newTestMessenger(t, be, nil)
	ctx := context.Background()
	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}
	eventually(t, "first poll", func() bool {
		convs, err := m.Conversations(ctx)
		return err == nil && len(convs) == 1
	})

	msg := chat.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Content: "hey"}
	m.Deliver(chat.MessageReceived, msg)
	m.Deliver(chat.MessageReceived, msg)
	m.Deliver(chat.MessageReceived, chat.Message{ID: "m2", ConversationID: "c1", SenderID: "me"})

	s, err := m.Unread(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Bell != 1 || s.PerConversation["c1"] != 1 {
		t.Errorf("unread = %+v, want bell 1 and c1 1", s)
	}
	convs, _ := m.Conversations(ctx)
	if convs[0].LastMessageText != "hey" {
		t.Errorf("last message = %q, want hey", convs[0].LastMessageText)
	}
}

func TestIncomingMessageAppendsToOpenWindow(t *testing.T) {
	be := &fakeBackend{history: map[string][]chat.Message{
		"c1": {{ID: "h1", ConversationID: "c1", SenderID: "alice"}},
	}}
	m, _, _ := newTestMessenger(t, be, nil)
	ctx := context.Background()
	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}
	if err := m.Open(ctx, alice); err != nil {
		t.Fatal(err)
	}
	eventually(t, "history", func() bool {
		ws, err := m.Windows(ctx)
		return err == nil && len(ws) == 1 && ws[0].State == windows.Ready
	})

	msg := chat.Message{ID: "m1", ConversationID: "c1", SenderID: "alice"}
	m.Deliver(chat.MessageReceived, msg)
	m.Deliver(chat.MessageSentEcho, msg)
	m.Deliver(chat.TypingChanged, chat.Typing{UserID: "alice", IsTyping: true})

	ws, err := m.Windows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, msg := range ws[0].Messages {
		ids = append(ids, msg.ID)
	}
	if len(ids) != 2 || ids[0] != "h1" || ids[1] != "m1" {
		t.Errorf("messages = %v, want [h1 m1]", ids)
	}
	if !ws[0].PeerTyping {
		t.Error("peer typing not set")
	}
}

func TestLogoutClosesEverything(t *testing.T) {
	be := &fakeBackend{count: 3}
	m, ch, b := newTestMessenger(t, be, nil)
	closed, unsub := b.Subscribe(bus.WindowClosed, 1)
	defer unsub()
	ctx := context.Background()
	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}
	if err := m.Open(ctx, alice); err != nil {
		t.Fatal(err)
	}

	if err := m.SetCredential(ctx, auth.Credential{}); err != nil {
		t.Fatal(err)
	}
	ch.mu.Lock()
	disconnects := ch.disconnects
	ch.mu.Unlock()
	if disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", disconnects)
	}
	if _, err := m.Windows(ctx); !errors.Is(err, ErrLoggedOut) {
		t.Errorf("Windows after logout = %v", err)
	}
	select {
	case evt := <-closed:
		if evt.Payload != "c1" {
			t.Errorf("closed %v, want c1", evt.Payload)
		}
	default:
		t.Error("no window.closed event on logout")
	}

	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}
	ws, err := m.Windows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ws) != 0 {
		t.Errorf("windows after re-login = %d, want 0", len(ws))
	}
}

func TestSendPublishesCanonicalMessage(t *testing.T) {
	be := &fakeBackend{}
	m, ch, b := newTestMessenger(t, be, nil)
	sent, unsub := b.Subscribe(bus.MessageSent, 1)
	defer unsub()
	ctx := context.Background()
	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}
	if err := m.Open(ctx, alice); err != nil {
		t.Fatal(err)
	}

	msg, err := m.Send(ctx, "c1", "  hello ")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "srv-1" || msg.ConversationID != "c1" || msg.Content != "hello" {
		t.Errorf("sent = %+v", msg)
	}
	select {
	case evt := <-sent:
		if evt.Payload.(chat.Message).ID != "srv-1" {
			t.Errorf("event payload = %+v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no message.sent event")
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	var found bool
	for _, f := range ch.frames {
		if sf, ok := f.(channel.SendFrame); ok && sf.RecipientID == "alice" && sf.Message.ID == "srv-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("no send frame in %v", ch.frames)
	}

	if _, err := m.Send(ctx, "c1", "   "); !errors.Is(err, windows.ErrEmptyContent) {
		t.Errorf("blank send = %v, want ErrEmptyContent", err)
	}
}

func TestStartChatOpensWindow(t *testing.T) {
	be := &fakeBackend{created: alice}
	m, _, _ := newTestMessenger(t, be, nil)
	ctx := context.Background()
	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}

	conv, err := m.StartChat(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if conv.ID != "c1" {
		t.Errorf("conversation = %s", conv.ID)
	}
	ws, _ := m.Windows(ctx)
	if len(ws) != 1 || ws[0].RecipientID != "alice" {
		t.Errorf("windows = %+v", ws)
	}
}

func TestOpenByID(t *testing.T) {
	be := &fakeBackend{convs: []chat.Conversation{alice}}
	m, _, _ := newTestMessenger(t, be, nil)
	ctx := context.Background()
	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}
	eventually(t, "first poll", func() bool {
		convs, err := m.Conversations(ctx)
		return err == nil && len(convs) == 1
	})

	if _, err := m.OpenByID(ctx, "nope"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("OpenByID(nope) = %v", err)
	}
	if _, err := m.OpenByID(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	ws, _ := m.Windows(ctx)
	if len(ws) != 1 {
		t.Errorf("windows = %d, want 1", len(ws))
	}
}

func TestArchiveFallbackAndBellCheckpoint(t *testing.T) {
	be := &fakeBackend{countErr: errDown, convErr: errDown}
	arch := &fakeArchive{bell: 4, convs: []chat.Conversation{alice}}
	m, _, _ := newTestMessenger(t, be, arch)
	ctx := context.Background()
	if err := m.SetCredential(ctx, me); err != nil {
		t.Fatal(err)
	}

	convs, err := m.Conversations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].ID != "c1" {
		t.Errorf("conversations = %+v, want archived c1", convs)
	}
	s, err := m.Unread(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Bell != 4 {
		t.Errorf("bell = %d, want checkpointed 4", s.Bell)
	}
}
