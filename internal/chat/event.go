// Package chat implements the realtime core: the connection registry,
// per-connection sessions, and the gateway that moves messages, read
// acknowledgements, presence and typing signals between them.
package chat

import (
	"encoding/json"
	"time"
)

// Client → server events.
const (
	EventSendMessage = "send_message"
	EventMarkRead    = "mark_read"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
)

// Server → client events.
const (
	EventReceiveMessage  = "receive_message"
	EventMessageSent     = "message_sent"
	EventMessageRead     = "message_read"
	EventUserStatus      = "user_status"
	EventUserTyping      = "user_typing"
	EventUserStopTyping  = "user_stop_typing"
	EventPendingMessages = "pending_messages"
	EventMessageError    = "message_error"
)

// Event is the wire envelope. Data carries the raw payload for inbound
// events and the marshaled payload for outbound ones.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// NewEvent marshals payload into an outbound envelope.
func NewEvent(name string, payload any) (*Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Name: name, Data: b}, nil
}

// SendMessagePayload is the body of a send_message event. The sender is
// never part of the payload; it is always the connection's bound identity.
type SendMessagePayload struct {
	RecipientID string `json:"recipientId" validate:"required,hexadecimal,len=24"`
	Content     string `json:"content" validate:"required"`
}

// MarkReadPayload is the body of a mark_read event.
type MarkReadPayload struct {
	MessageID string `json:"messageId" validate:"required,hexadecimal,len=24"`
}

// TypingPayload is the body of typing and stop_typing events.
type TypingPayload struct {
	RecipientID string `json:"recipientId" validate:"required,hexadecimal,len=24"`
}

// ReceiveMessagePayload is pushed to a recipient whose connection is
// live when the message arrives.
type ReceiveMessagePayload struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	SentAt    time.Time `json:"sentAt"`
}

// MessageSentPayload is the sender's acknowledgement, carrying the
// persisted message with its final delivered flag. It is decoupled from
// the recipient's receipt.
type MessageSentPayload struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"createdAt"`
	SentAt    time.Time `json:"sentAt"`
}

// MessageReadPayload notifies a sender that one of their messages was read.
type MessageReadPayload struct {
	MessageID string `json:"messageId"`
}

// UserStatusPayload announces an online/offline transition.
type UserStatusPayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// UserTypingPayload carries typing and stop-typing relays.
type UserTypingPayload struct {
	UserID string `json:"userId"`
}

// MessageErrorPayload reports a failed operation to the originating
// connection. The connection itself stays open.
type MessageErrorPayload struct {
	Error string `json:"error"`
}
