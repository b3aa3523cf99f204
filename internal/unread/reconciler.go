package unread

import (
	"context"
	"slices"
	"time"

	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/channel"
	"github.com/matheus3301/chatdock/internal/chat"
	"go.uber.org/zap"
)

const seenCapacity = 4096

// Backend is the subset of the HTTP API the reconciler calls.
type Backend interface {
	UnreadCount(ctx context.Context) (int, error)
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	MarkConversationRead(ctx context.Context, conversationID string) error
	MarkAllRead(ctx context.Context) error
}

// Loop is the owner the reconciler runs on.
type Loop interface {
	Post(fn func())
	Go(work func() func())
}

// Emitter sends fire-and-forget frames on the push channel.
type Emitter interface {
	Emit(typ string, payload any)
}

// Checkpointer persists the last applied bell count.
type Checkpointer interface {
	SaveBell(count int) error
}

// Options configures a Reconciler.
type Options struct {
	Context        context.Context
	Backend        Backend
	Loop           Loop
	Channel        Emitter
	Checkpoint     Checkpointer
	Bus            *bus.Bus
	Logger         *zap.Logger
	PollInterval   time.Duration
	SuppressWindow time.Duration
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Snapshot is a copy of the unread state.
type Snapshot struct {
	Bell            int            `json:"bell"`
	PerConversation map[string]int `json:"perConversation"`
	SuppressedUntil time.Time      `json:"suppressedUntil,omitzero"`
}

// Reconciler keeps the bell and per-conversation unread counts consistent
// across push events, periodic polls and bulk read actions. All methods
// except Start and Stop must run on the owning loop.
type Reconciler struct {
	ctx        context.Context
	backend    Backend
	loop       Loop
	channel    Emitter
	checkpoint Checkpointer
	bus        *bus.Bus
	logger     *zap.Logger
	interval   time.Duration
	suppress   time.Duration
	timeout    time.Duration
	now        func() time.Time
	cancel     context.CancelFunc

	enabled         bool
	self            string
	bell            int
	perConv         map[string]int
	convs           []chat.Conversation
	seen            *seenSet
	suppressedUntil time.Time
	// readAllEpoch advances on every MarkAllRead; polls started before
	// the latest one are discarded.
	readAllEpoch uint64
}

// New creates a reconciler with empty state.
func New(opts Options) *Reconciler {
	r := &Reconciler{
		ctx:        opts.Context,
		backend:    opts.Backend,
		loop:       opts.Loop,
		channel:    opts.Channel,
		checkpoint: opts.Checkpoint,
		bus:        opts.Bus,
		logger:     opts.Logger,
		interval:   opts.PollInterval,
		suppress:   opts.SuppressWindow,
		timeout:    opts.RequestTimeout,
		now:        opts.Now,
		perConv:    make(map[string]int),
		seen:       newSeenSet(seenCapacity),
	}
	if r.ctx == nil {
		r.ctx = context.Background()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.interval <= 0 {
		r.interval = 30 * time.Second
	}
	if r.suppress <= 0 {
		r.suppress = 10 * time.Second
	}
	if r.timeout <= 0 {
		r.timeout = 15 * time.Second
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Start begins periodic polling. Each tick posts a refresh onto the loop.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.pollLoop(ctx)
}

// Stop stops polling.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Reconciler) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.loop.Post(r.Refresh)
		case <-ctx.Done():
			return
		}
	}
}

// SetEnabled turns polling on or off. Enabling refreshes immediately;
// disabling clears all counts.
func (r *Reconciler) SetEnabled(enabled bool) {
	if r.enabled == enabled {
		return
	}
	r.enabled = enabled
	if enabled {
		r.Refresh()
		return
	}
	r.bell = 0
	clear(r.perConv)
	r.convs = nil
	r.seen.reset()
	r.suppressedUntil = time.Time{}
	r.publish()
}

// SetSelf records the local user id; its own messages are never counted.
func (r *Reconciler) SetSelf(userID string) {
	r.self = userID
}

// Restore seeds the bell from a checkpoint until the first poll lands.
func (r *Reconciler) Restore(bell int) {
	r.bell = max(bell, 0)
	r.publish()
}

// HandleIncoming counts a pushed message once per id.
func (r *Reconciler) HandleIncoming(m chat.Message) {
	if m.ID == "" || (r.self != "" && m.SenderID == r.self) {
		return
	}
	if !r.seen.add(m.ID) {
		return
	}
	r.bell++
	r.perConv[m.ConversationID]++
	for i := range r.convs {
		if r.convs[i].ID == m.ConversationID {
			r.convs[i].LastMessageText = m.Content
			r.convs[i].LastMessageAt = m.CreatedAt
		}
	}
	r.publish()
}

// Refresh polls the backend off-loop and applies the result on return.
// It is a no-op while disabled.
func (r *Reconciler) Refresh() {
	if !r.enabled {
		return
	}
	epoch := r.readAllEpoch
	r.loop.Go(func() func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
		count, countErr := r.backend.UnreadCount(ctx)
		convs, convErr := r.backend.ListConversations(ctx)
		return func() {
			if countErr != nil {
				r.logger.Warn("unread count poll failed", zap.Error(countErr))
			}
			if convErr != nil {
				r.logger.Warn("conversation poll failed", zap.Error(convErr))
			}
			if countErr != nil && convErr != nil {
				return
			}
			r.applyPoll(epoch, count, countErr == nil, convs, convErr == nil)
		}
	})
}

// ApplyPoll applies poll results taken now. Results are discarded while
// the suppression window is open.
func (r *Reconciler) ApplyPoll(count int, convs []chat.Conversation) bool {
	return r.applyPoll(r.readAllEpoch, count, true, convs, convs != nil)
}

func (r *Reconciler) applyPoll(epoch uint64, count int, haveCount bool, convs []chat.Conversation, haveConvs bool) bool {
	if !r.enabled {
		return false
	}
	if r.Suppressed() || epoch != r.readAllEpoch {
		r.logger.Debug("discarding poll inside suppression window", zap.Int("unread", count))
		return false
	}
	if haveConvs {
		r.convs = slices.Clone(convs)
		clear(r.perConv)
		for _, c := range convs {
			if c.UnreadCount > 0 {
				r.perConv[c.ID] = c.UnreadCount
			}
		}
		if r.bus != nil {
			r.bus.Emit(bus.ConversationsSynced, slices.Clone(convs))
		}
	}
	if haveCount {
		r.bell = max(count, 0)
		if r.checkpoint != nil {
			if err := r.checkpoint.SaveBell(r.bell); err != nil {
				r.logger.Warn("checkpoint bell failed", zap.Error(err))
			}
		}
	}
	r.publish()
	return true
}

// MarkConversationRead zeroes one conversation locally, tells the backend
// and the peer, then refreshes the bell. done, if set, runs on the loop
// with the backend result.
func (r *Reconciler) MarkConversationRead(id string, done func(error)) {
	r.zero(id)
	r.loop.Go(func() func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
		err := r.backend.MarkConversationRead(ctx, id)
		return func() {
			if err != nil {
				r.logger.Warn("mark conversation read failed", zap.String("conversation", id), zap.Error(err))
			} else if r.channel != nil {
				r.channel.Emit(channel.TypeMessageRead, channel.ReadFrame{ConversationID: id})
			}
			r.Refresh()
			if done != nil {
				done(err)
			}
		}
	})
}

// ConversationRead handles the signal raised when opening a window marked
// the conversation read.
func (r *Reconciler) ConversationRead(id string) {
	r.zero(id)
	if r.bus != nil {
		r.bus.Emit(bus.ConversationRead, id)
	}
	r.Refresh()
}

// MarkAllRead zeroes every count and opens the suppression window before
// calling the backend, so an in-flight poll cannot bring counts back. The
// window is re-armed when the backend confirms; on failure it is closed
// and a refresh restores server state.
func (r *Reconciler) MarkAllRead(done func(error)) {
	r.bell = 0
	clear(r.perConv)
	for i := range r.convs {
		r.convs[i].UnreadCount = 0
	}
	r.readAllEpoch++
	r.suppressedUntil = r.now().Add(r.suppress)
	r.publish()

	r.loop.Go(func() func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
		err := r.backend.MarkAllRead(ctx)
		return func() {
			if err != nil {
				r.logger.Warn("mark all read failed", zap.Error(err))
				r.suppressedUntil = time.Time{}
				r.Refresh()
			} else {
				r.suppressedUntil = r.now().Add(r.suppress)
			}
			if done != nil {
				done(err)
			}
		}
	})
}

// Suppressed reports whether poll results are currently being discarded.
func (r *Reconciler) Suppressed() bool {
	return r.now().Before(r.suppressedUntil)
}

// Bell returns the bell count.
func (r *Reconciler) Bell() int {
	return r.bell
}

// Count returns the unread count for one conversation.
func (r *Reconciler) Count(id string) int {
	return r.perConv[id]
}

// Snapshot returns a copy of the unread state.
func (r *Reconciler) Snapshot() Snapshot {
	s := Snapshot{
		Bell:            r.bell,
		PerConversation: make(map[string]int, len(r.perConv)),
	}
	for id, n := range r.perConv {
		s.PerConversation[id] = n
	}
	if r.Suppressed() {
		s.SuppressedUntil = r.suppressedUntil
	}
	return s
}

// Conversations returns the last polled conversation list with current
// local unread counts.
func (r *Reconciler) Conversations() []chat.Conversation {
	out := slices.Clone(r.convs)
	for i := range out {
		out[i].UnreadCount = r.perConv[out[i].ID]
	}
	return out
}

func (r *Reconciler) zero(id string) {
	prev := r.perConv[id]
	delete(r.perConv, id)
	r.bell = max(r.bell-prev, 0)
	for i := range r.convs {
		if r.convs[i].ID == id {
			r.convs[i].UnreadCount = 0
		}
	}
	r.publish()
}

func (r *Reconciler) publish() {
	if r.bus != nil {
		r.bus.Emit(bus.UnreadChanged, r.Snapshot())
	}
}
