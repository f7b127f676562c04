package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCall_Lifecycle(t *testing.T) {
	req := require.New(t)

	call := NewCall("1", "2")
	req.Equal(CallRinging, call.Status)
	req.True(call.Active())
	req.Nil(call.EndTime)

	req.True(call.Accept())
	req.Equal(CallOngoing, call.Status)

	req.True(call.End())
	req.Equal(CallEnded, call.Status)
	req.NotNil(call.EndTime)
	req.False(call.EndTime.Before(call.StartTime))
}

func TestCall_EndedIsTerminal(t *testing.T) {
	req := require.New(t)

	call := NewCall("1", "2")
	req.True(call.End())
	endTime := *call.EndTime

	// No transition leaves the ended state
	req.False(call.Accept())
	req.Equal(CallEnded, call.Status)

	req.False(call.End())
	req.Equal(endTime, *call.EndTime)
}

func TestCall_OtherParty(t *testing.T) {
	req := require.New(t)

	call := NewCall("1", "2")
	req.Equal("2", call.OtherParty("1"))
	req.Equal("1", call.OtherParty("2"))
	req.True(call.Involves("1"))
	req.True(call.Involves("2"))
	req.False(call.Involves("3"))
}

func TestChatMessage_IDsSortByCreation(t *testing.T) {
	req := require.New(t)

	previous := NewChatMessage("1", "2", "first")
	for i := 0; i < 50; i++ {
		next := NewChatMessage("1", "2", "next")
		req.Less(previous.ID.String(), next.ID.String())
		previous = next
	}
}

func TestChatMessage_Between(t *testing.T) {
	req := require.New(t)

	m := NewChatMessage("1", "2", "hi")
	req.True(m.Between("1", "2"))
	req.True(m.Between("2", "1"))
	req.False(m.Between("1", "3"))
	req.False(m.Read)
}
