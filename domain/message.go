package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is immutable once stored, except for the Read flag which is
// flipped by the receiving session when the message is delivered.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

// NewChatMessage assigns a UUIDv7 id so ids themselves sort by creation
// time, matching the chronological ordering of the store keys.
func NewChatMessage(senderID, receiverID, content string) ChatMessage {
	return ChatMessage{
		ID:         uuid.Must(uuid.NewV7()),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  time.Now().UTC(),
	}
}

// Between reports whether the message belongs to the conversation
// between the two given users, in either direction.
func (m ChatMessage) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) ||
		(m.SenderID == b && m.ReceiverID == a)
}
