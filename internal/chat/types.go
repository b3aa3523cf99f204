package chat

import "time"

// EventKind names an inbound push event.
type EventKind string

const (
	MessageReceived      EventKind = "message.received"
	MessageSentEcho      EventKind = "message.sent.echo"
	TypingChanged        EventKind = "typing.changed"
	NotificationReceived EventKind = "notification.received"
)

// User is the denormalized summary of a community member.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Conversation is a one-to-one thread between two users.
type Conversation struct {
	ID              string    `json:"id"`
	ParticipantA    User      `json:"participantA"`
	ParticipantB    User      `json:"participantB"`
	LastMessageAt   time.Time `json:"lastMessageAt"`
	LastMessageText string    `json:"lastMessageText"`
	UnreadCount     int       `json:"unreadCount"`
}

// Peer returns the participant that is not selfID. When selfID is unknown
// the second participant is returned.
func (c Conversation) Peer(selfID string) User {
	if selfID != "" && c.ParticipantB.ID == selfID {
		return c.ParticipantA
	}
	return c.ParticipantB
}

// Message is immutable once produced by the backend.
type Message struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	SenderID       string    `json:"senderId"`
	ConversationID string    `json:"conversationId"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
	Sender         User      `json:"sender"`
}

// Notification is a community notification pushed over the channel.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Typing is the payload of typing.changed.
type Typing struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}
