package domain

import (
	"time"

	"github.com/google/uuid"
)

type CallStatus string

const (
	CallRinging CallStatus = "ringing"
	CallOngoing CallStatus = "ongoing"
	CallEnded   CallStatus = "ended"
)

// Call models one call lifecycle: ringing -> ongoing -> ended.
// Ended is terminal; EndTime is stamped on the transition to ended.
type Call struct {
	ID         uuid.UUID  `json:"id"`
	CallerID   string     `json:"callerId"`
	ReceiverID string     `json:"receiverId"`
	Status     CallStatus `json:"status"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
}

func NewCall(callerID, receiverID string) Call {
	return Call{
		ID:         uuid.New(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     CallRinging,
		StartTime:  time.Now().UTC(),
	}
}

func (c Call) Active() bool {
	return c.Status != CallEnded
}

func (c Call) Involves(userID string) bool {
	return c.CallerID == userID || c.ReceiverID == userID
}

// OtherParty returns the participant that is not the given user.
func (c Call) OtherParty(userID string) string {
	if c.CallerID == userID {
		return c.ReceiverID
	}
	return c.CallerID
}

// Accept transitions the call to ongoing. It reports false without
// mutating anything when the call is already ended.
func (c *Call) Accept() bool {
	if c.Status == CallEnded {
		return false
	}
	c.Status = CallOngoing
	return true
}

// End transitions any non-ended call to ended and stamps EndTime.
// It reports false when the call is already ended.
func (c *Call) End() bool {
	if c.Status == CallEnded {
		return false
	}
	now := time.Now().UTC()
	c.Status = CallEnded
	c.EndTime = &now
	return true
}
