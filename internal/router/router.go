package router

import (
	"github.com/matheus3301/chatdock/internal/chat"
	"go.uber.org/zap"
)

// Handler consumes one inbound event payload.
type Handler func(payload any)

// Router delivers each inbound event to the single handler currently
// registered for its kind. It is owned by the core loop and not safe for
// concurrent use.
type Router struct {
	handlers map[chat.EventKind]Handler
	logger   *zap.Logger
}

// New creates an empty router.
func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		handlers: make(map[chat.EventKind]Handler),
		logger:   logger,
	}
}

// Register installs h for kind, replacing any previous handler. Callers that
// need several consumers compose them with FanOut first. A nil handler
// unregisters the kind.
func (r *Router) Register(kind chat.EventKind, h Handler) {
	if h == nil {
		delete(r.handlers, kind)
		return
	}
	r.handlers[kind] = h
}

// Dispatch invokes the handler for kind synchronously. Events with no
// handler are dropped. Reports whether a handler ran.
func (r *Router) Dispatch(kind chat.EventKind, payload any) bool {
	h, ok := r.handlers[kind]
	if !ok {
		r.logger.Debug("dropping event with no handler", zap.String("kind", string(kind)))
		return false
	}
	h(payload)
	return true
}

// FanOut composes handlers into one that calls each in order.
func FanOut(handlers ...Handler) Handler {
	return func(payload any) {
		for _, h := range handlers {
			if h != nil {
				h(payload)
			}
		}
	}
}
