package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Kinds published by the daemon.
const (
	SessionStatusChanged     = "session.status_changed"
	SessionCredentialChanged = "session.credential_changed"

	WindowOpened    = "window.opened"
	WindowUpdated   = "window.updated"
	WindowClosed    = "window.closed"
	WindowEvicted   = "window.evicted"
	MessageAppended = "message.appended"
	MessageArchived = "message.archived"
	MessageReceived = "message.received"
	MessageSent     = "message.sent"
	HistoryLoaded   = "message.history_loaded"

	ConversationsSynced = "conversation.synced"

	UnreadChanged    = "unread.changed"
	ConversationRead = "unread.conversation_read"

	NotificationReceived = "notification.received"
	TypingChanged        = "typing.changed"
)
