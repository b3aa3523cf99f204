package rpc

import (
	"encoding/json"

	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/store"
	"github.com/matheus3301/chatdock/internal/unread"
	"github.com/matheus3301/chatdock/internal/windows"
)

type StatusResponse struct {
	Session   string `json:"session"`
	State     string `json:"state"`
	LastError string `json:"lastError,omitempty"`
	LoggedIn  bool   `json:"loggedIn"`
	UserID    string `json:"userId,omitempty"`
	UptimeMs  int64  `json:"uptimeMs"`
	Bell      int    `json:"bell"`
}

type WindowsResponse struct {
	Windows []windows.Window `json:"windows"`
}

type ConversationRequest struct {
	ConversationID string `json:"conversationId"`
}

type StartChatRequest struct {
	RecipientID string `json:"recipientId"`
}

type ConversationResponse struct {
	Conversation chat.Conversation `json:"conversation"`
}

type SendRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

type MessageResponse struct {
	Message chat.Message `json:"message"`
}

type TypingRequest struct {
	ConversationID string `json:"conversationId"`
	Typing         bool   `json:"typing"`
}

type ConversationsResponse struct {
	Conversations []chat.Conversation `json:"conversations"`
}

type UnreadResponse struct {
	unread.Snapshot
}

type SearchRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversationId,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

type SearchResponse struct {
	Results []store.SearchResult `json:"results"`
}

// WatchRequest selects bus events by kind prefix. Empty means all.
type WatchRequest struct {
	Prefix string `json:"prefix,omitempty"`
}

// EventEnvelope is one bus event on the Watch stream.
type EventEnvelope struct {
	EventID          string          `json:"eventId"`
	Session          string          `json:"session"`
	OccurredAtUnixMs int64           `json:"occurredAtUnixMs"`
	Kind             string          `json:"kind"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}
