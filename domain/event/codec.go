package event

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-mesh/domain"
	"chat-mesh/errors"

	"github.com/google/uuid"
)

// envelope is the wire form used by the broadcast slot. The payload stays
// raw until the type tag tells us which concrete struct to decode into.
type envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       Type            `json:"type"`
	SenderID   string          `json:"senderId"`
	ReceiverID string          `json:"receiverId,omitempty"`
	At         time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"data"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Type, err)
	}
	return json.Marshal(envelope{
		ID:         e.ID,
		Type:       e.Type,
		SenderID:   e.SenderID,
		ReceiverID: e.ReceiverID,
		At:         e.At,
		Payload:    raw,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	payload, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return err
	}

	*e = Event{
		ID:         env.ID,
		Type:       env.Type,
		SenderID:   env.SenderID,
		ReceiverID: env.ReceiverID,
		At:         env.At,
		Payload:    payload,
	}
	return nil
}

func decodePayload(t Type, raw json.RawMessage) (any, error) {
	switch t {
	case MessageType:
		var m domain.ChatMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
		}
		return m, nil
	case CallRequestType, CallAcceptType, CallRejectType, CallEndType:
		var c domain.Call
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
		}
		return c, nil
	case UserStatusType:
		var p Presence
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, t)
	}
}
