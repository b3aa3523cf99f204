package windows

import (
	"context"
	"time"

	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/channel"
	"github.com/matheus3301/chatdock/internal/chat"
	"go.uber.org/zap"
)

// loadHistory fetches history off-loop. The result applies only if the
// window that started the fetch is still open; a closed or reopened
// window makes it a no-op.
func (p *Pool) loadHistory(id string, fetch uint64) {
	p.runner.Go(func() func() {
		msgs, err := p.fetchHistory(id)
		return func() {
			w := p.find(id)
			if w == nil || w.fetch != fetch {
				p.logger.Debug("discarding superseded history", zap.String("conversation", id))
				return
			}
			if err != nil {
				p.logger.Warn("history fetch failed, window stays loading",
					zap.String("conversation", id),
					zap.Error(err),
				)
				return
			}
			w.load(msgs)
			p.bus.Emit(bus.HistoryLoaded, msgs)
			p.bus.Emit(bus.WindowUpdated, w.clone())
			p.markRead(id)
		}
	})
}

func (p *Pool) fetchHistory(id string) ([]chat.Message, error) {
	bo := channel.NewBackoff(p.retryBase, p.retryMax)
	var err error
	for attempt := 1; ; attempt++ {
		var msgs []chat.Message
		msgs, err = p.get(id)
		if err == nil {
			return msgs, nil
		}
		if attempt >= p.attempts {
			return nil, err
		}
		delay := bo.Next()
		p.logger.Debug("history fetch failed, retrying",
			zap.String("conversation", id),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-p.ctx.Done():
			return nil, p.ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (p *Pool) get(id string) ([]chat.Message, error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	return p.backend.History(ctx, id)
}

// markRead tells the backend the conversation was read, then signals the
// reconciler so the bell refreshes without waiting for a poll.
func (p *Pool) markRead(id string) {
	p.runner.Go(func() func() {
		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
		err := p.backend.MarkConversationRead(ctx, id)
		return func() {
			if err != nil {
				p.logger.Warn("mark read failed", zap.String("conversation", id), zap.Error(err))
				return
			}
			if p.reads != nil {
				p.reads.ConversationRead(id)
			}
		}
	})
}
