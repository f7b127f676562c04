package event

import (
	"time"

	"chat-mesh/domain"

	"github.com/google/uuid"
)

type Type string

const (
	MessageType     Type = "message"
	UserStatusType  Type = "user-status"
	CallRequestType Type = "call-request"
	CallAcceptType  Type = "call-accept"
	CallRejectType  Type = "call-reject"
	CallEndType     Type = "call-end"
)

// Presence is the payload of a user-status event.
type Presence struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// Event is the transient envelope carried by the bus and the cross-context
// relay. It is never persisted beyond the short broadcast window.
// Payload is one of domain.ChatMessage, domain.Call or Presence,
// discriminated by Type.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId,omitempty"`
	At         time.Time `json:"timestamp"`
	Payload    any       `json:"-"`
}

func New(t Type, senderID, receiverID string, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		SenderID:   senderID,
		ReceiverID: receiverID,
		At:         time.Now().UTC(),
		Payload:    payload,
	}
}

func NewMessage(m domain.ChatMessage) Event {
	return New(MessageType, m.SenderID, m.ReceiverID, m)
}

func NewUserStatus(senderID string, p Presence) Event {
	return New(UserStatusType, senderID, "", p)
}

// NewCall builds one of the call-* events. The receiver is chosen by the
// caller since call-accept and call-end travel back towards the initiator.
func NewCall(t Type, senderID, receiverID string, c domain.Call) Event {
	return New(t, senderID, receiverID, c)
}
