package archive

import (
	"context"
	"fmt"
	"strconv"

	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/store"
	"go.uber.org/zap"
)

const bellKey = "unread.bell"

// Archive records every message and conversation the daemon sees into the
// local store. It consumes bus events on its own goroutine so the core
// loop never waits on disk.
type Archive struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	bell   chan int
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an archive over db.
func New(db *store.DB, b *bus.Bus, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{
		db:     db,
		bus:    b,
		logger: logger,
		bell:   make(chan int, 1),
	}
}

// Start subscribes to the bus and begins ingesting.
func (a *Archive) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	ch, unsub := a.bus.Subscribe("", 256)

	go func() {
		defer close(a.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				a.handleEvent(evt)
			case n := <-a.bell:
				if err := a.db.SetState(bellKey, strconv.Itoa(n)); err != nil {
					a.logger.Warn("failed to checkpoint bell", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops ingesting and waits for the current write.
func (a *Archive) Stop() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
}

func (a *Archive) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.MessageReceived, bus.MessageSent:
		m, ok := evt.Payload.(chat.Message)
		if !ok {
			return
		}
		if err := a.IngestMessage(m); err != nil {
			a.logger.Error("failed to archive message", zap.Error(err), zap.String("msg_id", m.ID))
		}
	case bus.HistoryLoaded:
		msgs, ok := evt.Payload.([]chat.Message)
		if !ok {
			return
		}
		if err := a.IngestHistory(msgs); err != nil {
			a.logger.Error("failed to archive history", zap.Error(err), zap.Int("count", len(msgs)))
		}
	case bus.ConversationsSynced:
		convs, ok := evt.Payload.([]chat.Conversation)
		if !ok {
			return
		}
		if err := a.db.UpsertConversations(convs); err != nil {
			a.logger.Error("failed to archive conversations", zap.Error(err), zap.Int("count", len(convs)))
		}
	}
}

// IngestMessage stores one message (idempotent) and publishes
// message.archived the first time it is seen.
func (a *Archive) IngestMessage(m chat.Message) error {
	created, err := a.db.UpsertMessage(m)
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	if err := a.db.TouchConversation(m.ConversationID, m.CreatedAt, truncate(m.Content, 100)); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if created {
		a.bus.Emit(bus.MessageArchived, m)
	}
	return nil
}

// IngestHistory stores a loaded history page.
func (a *Archive) IngestHistory(msgs []chat.Message) error {
	stored := 0
	for _, m := range msgs {
		created, err := a.db.UpsertMessage(m)
		if err != nil {
			return fmt.Errorf("upsert history message %s: %w", m.ID, err)
		}
		if created {
			stored++
		}
	}
	if len(msgs) > 0 {
		a.logger.Debug("history archived",
			zap.String("conversation", msgs[0].ConversationID),
			zap.Int("messages", len(msgs)),
			zap.Int("new", stored),
		)
	}
	return nil
}

// SaveBell checkpoints the bell count. Only the latest pending value is kept.
func (a *Archive) SaveBell(n int) error {
	for {
		select {
		case a.bell <- n:
			return nil
		default:
		}
		select {
		case <-a.bell:
		default:
		}
	}
}

// LoadBell returns the last checkpointed bell count.
func (a *Archive) LoadBell() (int, bool, error) {
	v, ok, err := a.db.GetState(bellKey)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("parse bell checkpoint %q: %w", v, err)
	}
	return n, true, nil
}

// Conversations returns the archived conversation list.
func (a *Archive) Conversations(limit int) ([]chat.Conversation, error) {
	return a.db.ListConversations(limit, 0)
}

// Search runs a full-text query over archived messages.
func (a *Archive) Search(query, conversationID string, limit int) ([]store.SearchResult, error) {
	return a.db.SearchMessages(query, conversationID, limit)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
