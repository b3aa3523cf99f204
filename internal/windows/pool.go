package windows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/channel"
	"github.com/matheus3301/chatdock/internal/chat"
	"go.uber.org/zap"
)

var (
	ErrEmptyContent   = errors.New("message content is empty")
	ErrWindowNotFound = errors.New("window not found")
)

// Backend is the subset of the HTTP API the pool calls.
type Backend interface {
	History(ctx context.Context, conversationID string) ([]chat.Message, error)
	MarkConversationRead(ctx context.Context, conversationID string) error
	SendMessage(ctx context.Context, recipientID, content string) (chat.Message, error)
}

// Emitter sends fire-and-forget frames on the push channel.
type Emitter interface {
	Emit(typ string, payload any)
}

// ReadSignal is told when a conversation was marked read by opening it.
type ReadSignal interface {
	ConversationRead(conversationID string)
}

// Runner runs work off the owning loop and posts the returned continuation
// back onto it.
type Runner interface {
	Go(work func() func())
}

// Limits caps the number of expanded and minimized windows.
type Limits struct {
	MaxExpanded  int
	MaxMinimized int
}

// DefaultLimits are the caps used when none are configured.
var DefaultLimits = Limits{MaxExpanded: 3, MaxMinimized: 8}

// Options configures a Pool.
type Options struct {
	Context        context.Context
	Limits         Limits
	Backend        Backend
	Channel        Emitter
	Reads          ReadSignal
	Runner         Runner
	Bus            *bus.Bus
	Logger         *zap.Logger
	RequestTimeout time.Duration
	FetchAttempts  int
	RetryBase      time.Duration
	RetryMax       time.Duration
}

// Pool holds the open windows in insertion order. It is owned by a single
// loop; every method must be called from it.
type Pool struct {
	ctx     context.Context
	limits  Limits
	backend Backend
	channel Emitter
	reads   ReadSignal
	runner  Runner
	bus     *bus.Bus
	logger  *zap.Logger

	timeout   time.Duration
	attempts  int
	retryBase time.Duration
	retryMax  time.Duration

	self    string
	windows []*Window
	fetches uint64
}

// New creates an empty pool.
func New(opts Options) *Pool {
	p := &Pool{
		ctx:       opts.Context,
		limits:    opts.Limits,
		backend:   opts.Backend,
		channel:   opts.Channel,
		reads:     opts.Reads,
		runner:    opts.Runner,
		bus:       opts.Bus,
		logger:    opts.Logger,
		timeout:   opts.RequestTimeout,
		attempts:  opts.FetchAttempts,
		retryBase: opts.RetryBase,
		retryMax:  opts.RetryMax,
	}
	if p.ctx == nil {
		p.ctx = context.Background()
	}
	if p.limits.MaxExpanded <= 0 {
		p.limits.MaxExpanded = DefaultLimits.MaxExpanded
	}
	if p.limits.MaxMinimized <= 0 {
		p.limits.MaxMinimized = DefaultLimits.MaxMinimized
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.timeout <= 0 {
		p.timeout = 15 * time.Second
	}
	if p.attempts <= 0 {
		p.attempts = 3
	}
	if p.retryBase <= 0 {
		p.retryBase = 500 * time.Millisecond
	}
	if p.retryMax <= 0 {
		p.retryMax = 4 * time.Second
	}
	return p
}

// SetSelf records the local user id, used to pick the recipient of a conversation.
func (p *Pool) SetSelf(userID string) {
	p.self = userID
}

// Open shows the window for conv. An existing window is restored without
// refetching; otherwise a new expanded window is created in Loading state
// and its history is fetched. Reports whether a window was created.
func (p *Pool) Open(conv chat.Conversation) bool {
	if w := p.find(conv.ID); w != nil {
		if w.IsMinimized {
			p.restore(w)
		}
		return false
	}

	peer := conv.Peer(p.self)
	p.fetches++
	w := &Window{
		ConversationID: conv.ID,
		RecipientID:    peer.ID,
		RecipientName:  peer.Name,
		RecipientImage: peer.Image,
		State:          Loading,
		seen:           make(map[string]struct{}),
		fetch:          p.fetches,
	}
	p.makeRoom(nil)
	p.windows = append(p.windows, w)
	p.evictOverflow()
	p.bus.Emit(bus.WindowOpened, w.clone())
	p.logger.Debug("window opened", zap.String("conversation", conv.ID))

	p.loadHistory(w.ConversationID, w.fetch)
	return true
}

// Minimize collapses a window. The oldest minimized window is evicted if
// the minimized cap is exceeded.
func (p *Pool) Minimize(id string) error {
	w := p.find(id)
	if w == nil {
		return fmt.Errorf("minimize %s: %w", id, ErrWindowNotFound)
	}
	if w.IsMinimized {
		return nil
	}
	w.IsMinimized = true
	p.bus.Emit(bus.WindowUpdated, w.clone())
	p.evictOverflow()
	return nil
}

// Restore expands a minimized window, demoting the oldest other expanded
// window when the expanded cap is reached.
func (p *Pool) Restore(id string) error {
	w := p.find(id)
	if w == nil {
		return fmt.Errorf("restore %s: %w", id, ErrWindowNotFound)
	}
	if w.IsMinimized {
		p.restore(w)
	}
	return nil
}

// Close removes a window. No backend call is made.
func (p *Pool) Close(id string) error {
	i := p.index(id)
	if i < 0 {
		return fmt.Errorf("close %s: %w", id, ErrWindowNotFound)
	}
	p.remove(i)
	p.bus.Emit(bus.WindowClosed, id)
	return nil
}

// AppendMessage adds m to its conversation's window, if one is open.
// Messages for conversations without a window are ignored.
func (p *Pool) AppendMessage(m chat.Message) bool {
	w := p.find(m.ConversationID)
	if w == nil {
		return false
	}
	if !w.append(m) {
		return false
	}
	if m.SenderID == w.RecipientID && w.PeerTyping {
		w.PeerTyping = false
	}
	p.bus.Emit(bus.MessageAppended, m)
	return true
}

// Send posts content to the window's recipient. The canonical message
// returned by the backend is appended and relayed on the channel; nothing
// is appended before that. done, if set, runs on the owning loop with the
// outcome.
func (p *Pool) Send(id, content string, done func(chat.Message, error)) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}
	w := p.find(id)
	if w == nil {
		return fmt.Errorf("send %s: %w", id, ErrWindowNotFound)
	}
	recipient := w.RecipientID

	p.runner.Go(func() func() {
		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
		msg, err := p.backend.SendMessage(ctx, recipient, content)
		return func() {
			if err != nil {
				p.logger.Warn("send message failed", zap.String("conversation", id), zap.Error(err))
			} else {
				if msg.ConversationID == "" {
					msg.ConversationID = id
				}
				p.AppendMessage(msg)
				if p.channel != nil {
					p.channel.Emit(channel.TypeMessageSend, channel.SendFrame{RecipientID: recipient, Message: msg})
				}
			}
			if done != nil {
				done(msg, err)
			}
		}
	})
	return nil
}

// SetPeerTyping updates the typing indicator on windows whose recipient is userID.
func (p *Pool) SetPeerTyping(userID string, typing bool) {
	for _, w := range p.windows {
		if w.RecipientID == userID && w.PeerTyping != typing {
			w.PeerTyping = typing
			p.bus.Emit(bus.WindowUpdated, w.clone())
		}
	}
}

// SetTyping tells the window's recipient that the local user is typing.
func (p *Pool) SetTyping(id string, typing bool) error {
	w := p.find(id)
	if w == nil {
		return fmt.Errorf("typing %s: %w", id, ErrWindowNotFound)
	}
	if p.channel != nil {
		p.channel.Emit(channel.TypeTyping, channel.TypingFrame{RecipientID: w.RecipientID, IsTyping: typing})
	}
	return nil
}

// Reset closes every window.
func (p *Pool) Reset() {
	for _, w := range p.windows {
		p.bus.Emit(bus.WindowClosed, w.ConversationID)
	}
	p.windows = nil
}

// Get returns a copy of the window for id.
func (p *Pool) Get(id string) (Window, bool) {
	w := p.find(id)
	if w == nil {
		return Window{}, false
	}
	return w.clone(), true
}

// Snapshot returns copies of every window in insertion order.
func (p *Pool) Snapshot() []Window {
	out := make([]Window, 0, len(p.windows))
	for _, w := range p.windows {
		out = append(out, w.clone())
	}
	return out
}

// Len returns the number of open windows.
func (p *Pool) Len() int {
	return len(p.windows)
}

func (p *Pool) restore(w *Window) {
	w.IsMinimized = false
	p.makeRoom(w)
	p.evictOverflow()
	p.bus.Emit(bus.WindowUpdated, w.clone())
}

// makeRoom demotes the oldest expanded windows, other than keep, until one
// more expanded window fits.
func (p *Pool) makeRoom(keep *Window) {
	for p.countExpanded(keep) >= p.limits.MaxExpanded {
		for _, w := range p.windows {
			if w != keep && !w.IsMinimized {
				w.IsMinimized = true
				p.bus.Emit(bus.WindowUpdated, w.clone())
				break
			}
		}
	}
}

// evictOverflow removes the oldest minimized windows while the minimized
// set is over its cap.
func (p *Pool) evictOverflow() {
	for p.countMinimized() > p.limits.MaxMinimized {
		for i, w := range p.windows {
			if w.IsMinimized {
				p.remove(i)
				p.bus.Emit(bus.WindowEvicted, w.ConversationID)
				p.logger.Debug("window evicted", zap.String("conversation", w.ConversationID))
				break
			}
		}
	}
}

func (p *Pool) countExpanded(except *Window) int {
	n := 0
	for _, w := range p.windows {
		if w != except && !w.IsMinimized {
			n++
		}
	}
	return n
}

func (p *Pool) countMinimized() int {
	n := 0
	for _, w := range p.windows {
		if w.IsMinimized {
			n++
		}
	}
	return n
}

func (p *Pool) find(id string) *Window {
	if i := p.index(id); i >= 0 {
		return p.windows[i]
	}
	return nil
}

func (p *Pool) index(id string) int {
	for i, w := range p.windows {
		if w.ConversationID == id {
			return i
		}
	}
	return -1
}

func (p *Pool) remove(i int) {
	p.windows = append(p.windows[:i], p.windows[i+1:]...)
}
