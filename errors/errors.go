package errors

import "fmt"

var (
	ErrNotInitialized   = fmt.Errorf("session not initialized")
	ErrCallNotFound     = fmt.Errorf("call not found")
	ErrCallEnded        = fmt.Errorf("call already ended")
	ErrCallInProgress   = fmt.Errorf("an active call already exists")
	ErrUnknownEventType = fmt.Errorf("unknown event type")
	ErrInvalidPayload   = fmt.Errorf("invalid event payload")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
)
