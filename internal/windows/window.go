package windows

import (
	"slices"

	"github.com/matheus3301/chatdock/internal/chat"
)

// State is the load state of a window.
type State string

const (
	Loading State = "LOADING"
	Ready   State = "READY"
)

// Window is one open conversation. Messages are kept in arrival order.
type Window struct {
	ConversationID string         `json:"conversationId"`
	RecipientID    string         `json:"recipientId"`
	RecipientName  string         `json:"recipientName"`
	RecipientImage string         `json:"recipientImage,omitempty"`
	Messages       []chat.Message `json:"messages"`
	IsMinimized    bool           `json:"isMinimized"`
	State          State          `json:"state"`
	PeerTyping     bool           `json:"peerTyping"`

	seen  map[string]struct{}
	fetch uint64
}

// IsLoading reports whether history has not been loaded yet.
func (w *Window) IsLoading() bool {
	return w.State == Loading
}

// append adds m unless its id is already present.
func (w *Window) append(m chat.Message) bool {
	if _, dup := w.seen[m.ID]; dup {
		return false
	}
	w.seen[m.ID] = struct{}{}
	w.Messages = append(w.Messages, m)
	return true
}

// load replaces the list with history followed by whatever arrived while
// the fetch was in flight.
func (w *Window) load(history []chat.Message) {
	pending := w.Messages
	w.Messages = make([]chat.Message, 0, len(history)+len(pending))
	w.seen = make(map[string]struct{}, len(history)+len(pending))
	for _, m := range history {
		w.append(m)
	}
	for _, m := range pending {
		w.append(m)
	}
	w.State = Ready
}

func (w *Window) clone() Window {
	c := *w
	c.Messages = slices.Clone(w.Messages)
	c.seen = nil
	return c
}
