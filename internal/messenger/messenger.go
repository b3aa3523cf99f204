package messenger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/chatdock/internal/auth"
	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/loop"
	"github.com/matheus3301/chatdock/internal/router"
	"github.com/matheus3301/chatdock/internal/status"
	"github.com/matheus3301/chatdock/internal/store"
	"github.com/matheus3301/chatdock/internal/unread"
	"github.com/matheus3301/chatdock/internal/windows"
	"go.uber.org/zap"
)

var (
	ErrLoggedOut            = errors.New("not logged in")
	ErrConversationNotFound = errors.New("conversation not found")
)

// Backend is the HTTP API used by the messenger and its components.
type Backend interface {
	windows.Backend
	unread.Backend
	FindOrCreateConversation(ctx context.Context, recipientID string) (chat.Conversation, error)
	SetToken(token string)
}

// Channel is the push connection.
type Channel interface {
	Connect(ctx context.Context, token string)
	Disconnect()
	Emit(typ string, payload any)
	State() status.State
}

// Archive is the optional local history.
type Archive interface {
	unread.Checkpointer
	LoadBell() (int, bool, error)
	Conversations(limit int) ([]chat.Conversation, error)
	Search(query, conversationID string, limit int) ([]store.SearchResult, error)
}

// Options configures a Messenger.
type Options struct {
	Backend        Backend
	Channel        Channel
	Archive        Archive
	Machine        *status.Machine
	Bus            *bus.Bus
	Logger         *zap.Logger
	Limits         windows.Limits
	PollInterval   time.Duration
	SuppressWindow time.Duration
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Status is the connectivity and login summary.
type Status struct {
	State     status.State `json:"state"`
	LastError string       `json:"lastError,omitempty"`
	LoggedIn  bool         `json:"loggedIn"`
	UserID    string       `json:"userId,omitempty"`
}

// Messenger owns the core state: the window pool, the unread reconciler
// and the router all live on one loop, and every UI-facing operation is
// serialized through it.
type Messenger struct {
	loop    *loop.Loop
	router  *router.Router
	pool    *windows.Pool
	unread  *unread.Reconciler
	backend Backend
	channel Channel
	archive Archive
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	// loop-owned
	cred auth.Credential
}

// New wires the core components. Call Start before use.
func New(opts Options) *Messenger {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	machine := opts.Machine
	if machine == nil {
		machine = status.NewMachine(opts.Bus)
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Messenger{
		loop:    loop.New(logger.Named("loop")),
		router:  router.New(logger.Named("router")),
		backend: opts.Backend,
		channel: opts.Channel,
		archive: opts.Archive,
		machine: machine,
		bus:     opts.Bus,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	var ckpt unread.Checkpointer
	if opts.Archive != nil {
		ckpt = opts.Archive
	}
	m.unread = unread.New(unread.Options{
		Context:        ctx,
		Backend:        opts.Backend,
		Loop:           m.loop,
		Channel:        opts.Channel,
		Checkpoint:     ckpt,
		Bus:            opts.Bus,
		Logger:         logger.Named("unread"),
		PollInterval:   opts.PollInterval,
		SuppressWindow: opts.SuppressWindow,
		RequestTimeout: opts.RequestTimeout,
		Now:            opts.Now,
	})
	m.pool = windows.New(windows.Options{
		Context:        ctx,
		Limits:         opts.Limits,
		Backend:        opts.Backend,
		Channel:        opts.Channel,
		Reads:          m.unread,
		Runner:         m.loop,
		Bus:            opts.Bus,
		Logger:         logger.Named("windows"),
		RequestTimeout: opts.RequestTimeout,
	})
	m.registerHandlers()
	return m
}

func (m *Messenger) registerHandlers() {
	m.router.Register(chat.MessageReceived, router.FanOut(
		onMessage(m.pool.AppendMessage),
		onMessage(m.unread.HandleIncoming),
		m.publish(bus.MessageReceived),
	))
	m.router.Register(chat.MessageSentEcho, router.FanOut(
		onMessage(m.pool.AppendMessage),
		m.publish(bus.MessageSent),
	))
	m.router.Register(chat.TypingChanged, router.FanOut(
		func(payload any) {
			if t, ok := payload.(chat.Typing); ok {
				m.pool.SetPeerTyping(t.UserID, t.IsTyping)
			}
		},
		m.publish(bus.TypingChanged),
	))
	m.router.Register(chat.NotificationReceived, m.publish(bus.NotificationReceived))
}

func onMessage[T any](fn func(chat.Message) T) router.Handler {
	return func(payload any) {
		if msg, ok := payload.(chat.Message); ok {
			fn(msg)
		}
	}
}

func (m *Messenger) publish(kind string) router.Handler {
	return func(payload any) {
		m.bus.Emit(kind, payload)
	}
}

// Start runs the loop and polling. A checkpointed bell is shown until the
// first poll lands.
func (m *Messenger) Start(ctx context.Context) {
	m.loop.Start(ctx)
	if m.archive != nil {
		if n, ok, err := m.archive.LoadBell(); err != nil {
			m.logger.Warn("failed to load bell checkpoint", zap.Error(err))
		} else if ok {
			m.loop.Post(func() { m.unread.Restore(n) })
		}
	}
	m.unread.Start(ctx)
}

// Stop closes the channel and stops the loop. In-flight requests are cancelled.
func (m *Messenger) Stop() {
	m.unread.Stop()
	m.channel.Disconnect()
	m.cancel()
	m.loop.Stop()
}

// Deliver is the channel sink: it queues an inbound event for dispatch on
// the loop, preserving arrival order.
func (m *Messenger) Deliver(kind chat.EventKind, payload any) {
	m.loop.Post(func() {
		m.router.Dispatch(kind, payload)
	})
}

// SetCredential applies a login, logout or token change. Losing the
// credential closes every window, clears unread state and closes the
// channel; gaining one connects and polls.
func (m *Messenger) SetCredential(ctx context.Context, cred auth.Credential) error {
	var changed bool
	err := m.loop.Do(ctx, func() {
		if cred.Token == m.cred.Token {
			return
		}
		changed = true
		prev := m.cred
		m.cred = cred
		m.backend.SetToken(cred.Token)

		if prev.Present() {
			m.pool.Reset()
			m.unread.SetEnabled(false)
		}
		m.pool.SetSelf(cred.UserID)
		m.unread.SetSelf(cred.UserID)
		if cred.Present() {
			m.unread.SetEnabled(true)
		}
	})
	if err != nil || !changed {
		return err
	}

	if cred.Present() {
		m.channel.Connect(m.ctx, cred.Token)
	} else {
		m.channel.Disconnect()
	}
	m.bus.Emit(bus.SessionCredentialChanged, Status{LoggedIn: cred.Present(), UserID: cred.UserID})
	m.logger.Info("credential applied", zap.Bool("logged_in", cred.Present()), zap.String("user_id", cred.UserID))
	return nil
}

// Status reports connectivity and login state.
func (m *Messenger) Status(ctx context.Context) (Status, error) {
	st := Status{State: m.channel.State()}
	if err := m.machine.LastError(); err != nil && st.State == status.Error {
		st.LastError = err.Error()
	}
	err := m.loop.Do(ctx, func() {
		st.LoggedIn = m.cred.Present()
		st.UserID = m.cred.UserID
	})
	return st, err
}

// do runs fn on the loop when logged in.
func (m *Messenger) do(ctx context.Context, fn func() error) error {
	var opErr error
	if err := m.loop.Do(ctx, func() {
		if !m.cred.Present() {
			opErr = ErrLoggedOut
			return
		}
		opErr = fn()
	}); err != nil {
		return err
	}
	return opErr
}

// await runs start on the loop, which must eventually call finish on the
// loop, and waits for the value passed to finish.
func await[T any](ctx context.Context, m *Messenger, start func(finish func(T, error)) error) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	finish := func(v T, err error) { ch <- result{v, err} }

	var zero T
	if err := m.do(ctx, func() error { return start(finish) }); err != nil {
		return zero, err
	}
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Open shows the window for conv.
func (m *Messenger) Open(ctx context.Context, conv chat.Conversation) error {
	return m.do(ctx, func() error {
		m.pool.Open(conv)
		return nil
	})
}

// OpenByID opens a conversation known from the last poll or the archive.
func (m *Messenger) OpenByID(ctx context.Context, id string) (chat.Conversation, error) {
	convs, err := m.Conversations(ctx)
	if err != nil {
		return chat.Conversation{}, err
	}
	for _, c := range convs {
		if c.ID == id {
			return c, m.Open(ctx, c)
		}
	}
	return chat.Conversation{}, fmt.Errorf("open %s: %w", id, ErrConversationNotFound)
}

// StartChat finds or creates the conversation with recipientID and opens it.
func (m *Messenger) StartChat(ctx context.Context, recipientID string) (chat.Conversation, error) {
	if !m.loggedIn(ctx) {
		return chat.Conversation{}, ErrLoggedOut
	}
	conv, err := m.backend.FindOrCreateConversation(ctx, recipientID)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("start chat with %s: %w", recipientID, err)
	}
	return conv, m.Open(ctx, conv)
}

// Close removes a window.
func (m *Messenger) Close(ctx context.Context, id string) error {
	return m.do(ctx, func() error { return m.pool.Close(id) })
}

// Minimize collapses a window.
func (m *Messenger) Minimize(ctx context.Context, id string) error {
	return m.do(ctx, func() error { return m.pool.Minimize(id) })
}

// Restore expands a window.
func (m *Messenger) Restore(ctx context.Context, id string) error {
	return m.do(ctx, func() error { return m.pool.Restore(id) })
}

// Send posts content in a window and returns the canonical message.
func (m *Messenger) Send(ctx context.Context, id, content string) (chat.Message, error) {
	return await(ctx, m, func(finish func(chat.Message, error)) error {
		return m.pool.Send(id, content, func(msg chat.Message, err error) {
			if err == nil {
				m.bus.Emit(bus.MessageSent, msg)
			}
			finish(msg, err)
		})
	})
}

// SetTyping tells a window's recipient whether the user is typing.
func (m *Messenger) SetTyping(ctx context.Context, id string, typing bool) error {
	return m.do(ctx, func() error { return m.pool.SetTyping(id, typing) })
}

// MarkConversationRead marks one conversation read.
func (m *Messenger) MarkConversationRead(ctx context.Context, id string) error {
	_, err := await(ctx, m, func(finish func(struct{}, error)) error {
		m.unread.MarkConversationRead(id, func(err error) { finish(struct{}{}, err) })
		return nil
	})
	return err
}

// MarkAllRead marks everything read and opens the suppression window.
func (m *Messenger) MarkAllRead(ctx context.Context) error {
	_, err := await(ctx, m, func(finish func(struct{}, error)) error {
		m.unread.MarkAllRead(func(err error) { finish(struct{}{}, err) })
		return nil
	})
	return err
}

// Conversations returns the polled conversation list, falling back to the
// archive before the first poll lands.
func (m *Messenger) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	var convs []chat.Conversation
	var counts unread.Snapshot
	if err := m.do(ctx, func() error {
		convs = m.unread.Conversations()
		counts = m.unread.Snapshot()
		return nil
	}); err != nil {
		return nil, err
	}
	if len(convs) > 0 || m.archive == nil {
		return convs, nil
	}
	cached, err := m.archive.Conversations(100)
	if err != nil {
		return nil, fmt.Errorf("archived conversations: %w", err)
	}
	for i := range cached {
		cached[i].UnreadCount = counts.PerConversation[cached[i].ID]
	}
	return cached, nil
}

// Unread returns the bell and per-conversation counts.
func (m *Messenger) Unread(ctx context.Context) (unread.Snapshot, error) {
	var s unread.Snapshot
	err := m.do(ctx, func() error {
		s = m.unread.Snapshot()
		return nil
	})
	return s, err
}

// Windows returns the open windows in insertion order.
func (m *Messenger) Windows(ctx context.Context) ([]windows.Window, error) {
	var ws []windows.Window
	err := m.do(ctx, func() error {
		ws = m.pool.Snapshot()
		return nil
	})
	return ws, err
}

// Search runs a full-text query over the archive.
func (m *Messenger) Search(ctx context.Context, query, conversationID string, limit int) ([]store.SearchResult, error) {
	if m.archive == nil {
		return nil, nil
	}
	if !m.loggedIn(ctx) {
		return nil, ErrLoggedOut
	}
	return m.archive.Search(query, conversationID, limit)
}

func (m *Messenger) loggedIn(ctx context.Context) bool {
	return m.do(ctx, func() error { return nil }) == nil
}
