package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matheus3301/chatdock/internal/chat"
)

// Outbound frame types.
const (
	TypeMessageSend = "message.send"
	TypeMessageRead = "message.read"
	TypeTyping      = "typing"
)

// Envelope wraps every frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendFrame asks the backend to relay a persisted message to its recipient.
type SendFrame struct {
	RecipientID string       `json:"recipientId"`
	Message     chat.Message `json:"message"`
}

// ReadFrame tells the peer that a conversation was read.
type ReadFrame struct {
	ConversationID string `json:"conversationId"`
}

// TypingFrame is the outbound typing indicator.
type TypingFrame struct {
	RecipientID string `json:"recipientId"`
	IsTyping    bool   `json:"isTyping"`
}

// ErrUnknownKind is wrapped by Decode for frame types this client does not consume.
var ErrUnknownKind = errors.New("unknown event kind")

// Decode parses one inbound frame into its kind and typed payload:
// chat.Message for message events, chat.Typing and chat.Notification for the rest.
func Decode(data []byte) (chat.EventKind, any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}
	kind := chat.EventKind(env.Type)

	var payload any
	switch kind {
	case chat.MessageReceived, chat.MessageSentEcho:
		var m chat.Message
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return kind, nil, err
		}
		if m.ID == "" || m.ConversationID == "" {
			return kind, nil, fmt.Errorf("decode %s: message without id or conversation", kind)
		}
		payload = m
	case chat.TypingChanged:
		var ty chat.Typing
		if err := unmarshalPayload(env.Payload, &ty); err != nil {
			return kind, nil, err
		}
		payload = ty
	case chat.NotificationReceived:
		var n chat.Notification
		if err := unmarshalPayload(env.Payload, &n); err != nil {
			return kind, nil, err
		}
		payload = n
	default:
		return kind, nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	return kind, payload, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("decode payload: empty")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// Encode builds an outbound frame.
func Encode(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Payload: raw})
}
